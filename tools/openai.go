package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"concierge/metrics"
	"concierge/models"
	"concierge/nlp"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/time/rate"
)

// Answer is the only shape the model may reply with.
type Answer struct {
	Message  string       `json:"message"`
	Language nlp.Language `json:"language"`
}

// FallbackAnswer is returned whenever the model cannot be used.
func FallbackAnswer() Answer {
	return Answer{
		Message:  "Sorry, I couldn't process that right now. Please try again in a moment or message us on WhatsApp.",
		Language: nlp.LangEnglish,
	}
}

// AskRequest is one free-form question for the model.
type AskRequest struct {
	Text     string
	Surface  models.Surface
	History  []models.ConversationMessage
	Context  string // extra facts, e.g. a shared post caption
	ImageURL string
}

const answerSchema = `{
  "type": "object",
  "properties": {
    "message": {"type": "string", "minLength": 1},
    "language": {"type": "string", "enum": ["en", "ur", "roman-ur"]}
  },
  "required": ["message", "language"],
  "additionalProperties": false
}`

var answerValidator = gojsonschema.NewSchemaLoader()

// OpenAIClient calls the Responses API for replies and the audio API for
// voice notes.
type OpenAIClient struct {
	APIKey          string
	BaseURL         string
	Model           string
	TranscribeModel string
	System          string
	HTTP            *http.Client
	Limiter         *rate.Limiter

	schema *gojsonschema.Schema
}

func NewOpenAIClient(apiKey, baseURL, model, transcribeModel, system string, rps float64) (*OpenAIClient, error) {
	schema, err := answerValidator.Compile(gojsonschema.NewStringLoader(answerSchema))
	if err != nil {
		return nil, fmt.Errorf("compile answer schema: %w", err)
	}
	if rps <= 0 {
		rps = 5
	}
	return &OpenAIClient{
		APIKey:          strings.TrimSpace(apiKey),
		BaseURL:         strings.TrimRight(baseURL, "/"),
		Model:           model,
		TranscribeModel: transcribeModel,
		System:          system,
		HTTP:            &http.Client{Timeout: 30 * time.Second},
		Limiter:         rate.NewLimiter(rate.Limit(rps), int(rps)*2+1),
		schema:          schema,
	}, nil
}

// Ask never fails: transport or parse problems become FallbackAnswer.
func (c *OpenAIClient) Ask(ctx context.Context, req AskRequest) Answer {
	start := time.Now()
	ans, err := c.ask(ctx, req)
	metrics.ModelLatency.WithLabelValues(c.Model, metrics.Status(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("brain: openai error: %v", err)
		return FallbackAnswer()
	}
	return ans
}

func (c *OpenAIClient) ask(ctx context.Context, req AskRequest) (Answer, error) {
	if c.APIKey == "" {
		return Answer{}, ErrDisabled
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return Answer{}, err
		}
	}

	reqBody := map[string]any{
		"model":        c.Model,
		"instructions": c.System,
		"input":        buildInput(req),
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   "reply",
				"strict": true,
				"schema": json.RawMessage(answerSchemaStrict),
			},
		},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return Answer{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/responses", bytes.NewReader(b))
	if err != nil {
		return Answer{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return Answer{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Answer{}, fmt.Errorf("openai error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Output []struct {
			Type    string `json:"type"`
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Answer{}, err
	}

	var sb strings.Builder
	for _, item := range parsed.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, part := range item.Content {
				if part.Type == "output_text" {
					sb.WriteString(part.Text)
				}
			}
		}
	}
	return c.ParseAnswer(sb.String())
}

// answerSchemaStrict is answerSchema without minLength, which strict mode rejects.
const answerSchemaStrict = `{"type":"object","properties":{"message":{"type":"string"},"language":{"type":"string","enum":["en","ur","roman-ur"]}},"required":["message","language"],"additionalProperties":false}`

// ParseAnswer validates raw model output against the answer schema.
func (c *OpenAIClient) ParseAnswer(raw string) (Answer, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Answer{}, fmt.Errorf("empty response from model (no output_text items found)")
	}

	result, err := c.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return Answer{}, fmt.Errorf("answer is not json: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return Answer{}, fmt.Errorf("answer failed validation: %s", strings.Join(problems, "; "))
	}

	var ans Answer
	if err := json.Unmarshal([]byte(raw), &ans); err != nil {
		return Answer{}, err
	}
	ans.Message = strings.TrimSpace(ans.Message)
	ans.Language = nlp.ParseLanguage(string(ans.Language))
	return ans, nil
}

func buildInput(req AskRequest) []map[string]any {
	input := make([]map[string]any, 0, len(req.History)+1)
	for _, m := range req.History {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		input = append(input, map[string]any{"role": m.Role, "content": m.Content})
	}

	var b strings.Builder
	b.WriteString("Surface: ")
	b.WriteString(string(req.Surface))
	b.WriteString("\n")
	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		b.WriteString("Context:\n")
		b.WriteString(ctx)
		b.WriteString("\n")
	}
	b.WriteString("\nCustomer message:\n")
	b.WriteString(req.Text)

	if req.ImageURL == "" {
		input = append(input, map[string]any{"role": models.ROLE_USER, "content": b.String()})
		return input
	}
	input = append(input, map[string]any{
		"role": models.ROLE_USER,
		"content": []map[string]any{
			{"type": "input_text", "text": b.String()},
			{"type": "input_image", "image_url": req.ImageURL},
		},
	})
	return input
}

const maxAudioBytes = 25 << 20

// Transcribe downloads a voice note and returns its text.
func (c *OpenAIClient) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if c.APIKey == "" {
		return "", ErrDisabled
	}

	dl, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", err
	}
	audioResp, err := c.HTTP.Do(dl)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	defer audioResp.Body.Close()
	if audioResp.StatusCode >= 300 {
		return "", fmt.Errorf("download audio: status=%d", audioResp.StatusCode)
	}
	audio, err := io.ReadAll(io.LimitReader(audioResp.Body, maxAudioBytes))
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("model", c.TranscribeModel)
	fw, err := mw.CreateFormFile("file", audioFileName(audioURL))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai transcription error %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return strings.TrimSpace(parsed.Text), nil
}

func audioFileName(audioURL string) string {
	name := path.Base(strings.SplitN(audioURL, "?", 2)[0])
	if name == "" || name == "." || name == "/" || !strings.Contains(name, ".") {
		return "voice.mp4"
	}
	return name
}
