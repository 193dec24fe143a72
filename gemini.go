package main

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultRegion = "europe-west1"
	defaultModel  = "gemini-2.5-flash"
)

// GeminiClient reads puzzles from photos with a Gemini model on Vertex AI.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// ErrNoProject means Gemini was requested without a GCP project.
var ErrNoProject = errors.New("gemini: GCP_PROJECT_ID not set")

// vertexConfig maps the gemini settings of cfg to a Vertex AI client
// configuration. Credentials come from Application Default Credentials
// (GOOGLE_APPLICATION_CREDENTIALS).
func vertexConfig(cfg Config) (*genai.ClientConfig, string, error) {
	if cfg.GCPProject == "" {
		return nil, "", ErrNoProject
	}
	region, model := cfg.GCPRegion, cfg.GeminiModel
	if region == "" {
		region = defaultRegion
	}
	if model == "" {
		model = defaultModel
	}
	return &genai.ClientConfig{
		Project:  cfg.GCPProject,
		Location: region,
		Backend:  genai.BackendVertexAI,
	}, model, nil
}

// NewGeminiClient creates a scanner from the gemini settings of cfg.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	cc, model, err := vertexConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

const scanPrompt = `Analysiere dieses Foto eines Kreuzworträtsels "Um die Ecke gedacht".

Gib alle Fragen als JSON-Array im folgenden Format zurück:
[
  {
    "nr": <Nummer der Frage>,
    "question": "<Fragetext>",
    "answer": "<Lösungswort in Großbuchstaben, Umlaute ausgeschrieben>",
    "xc": <Spalte des ersten Buchstabens, ab 1>,
    "yc": <Zeile des ersten Buchstabens, ab 1>,
    "direction": "h" für waagerecht oder "v" für senkrecht,
    "description": "<kurze Erklärung der Lösung>",
    "length": <Anzahl der Buchstaben der Antwort>
  },
  ...
]

Regeln:
- Die Nummern stehen in der Startzelle jedes Wortes.
- "length" muss genau der Länge von "answer" entsprechen.
- Antworte NUR mit dem JSON, ohne Kommentar oder Markdown.`

// ScanImage sends a photo of a printed puzzle to Gemini and returns the
// puzzle built from the extracted questions.
func (g *GeminiClient) ScanImage(ctx context.Context, imageData []byte, mimeType string) (*Puzzle, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: scanPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.1)),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty gemini response")
	}

	p, err := DecodePuzzle([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("scanned puzzle: %w\nraw response: %s", err, text)
	}
	p.Name = "Scan"
	return p, nil
}
