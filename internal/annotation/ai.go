package annotation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/nao1215/schemacrawl/internal/model"
)

// Defaults for AIExtractor.
const (
	DefaultAIModel           = "gpt-4o-mini"
	DefaultRequestsPerMinute = 60
	DefaultMaxContentBytes   = 16 * 1024
)

// systemPrompt instructs the model to answer with JSON-LD only.
const systemPrompt = `You generate schema.org structured data for web pages.
Reply with one JSON object and nothing else.
The object must be JSON-LD with "@context": "https://schema.org" and the most specific schema.org "@type" that describes the main entity of the page.
Use only properties that schema.org defines for that type.
Only include facts stated on the page. Omit properties you cannot fill.`

// AIExtractor generates annotations with an OpenAI compatible chat model.
// Calls are rate limited per extractor, so share one instance across crawls.
type AIExtractor struct {
	client          *openai.Client
	model           string
	maxContentBytes int
	limiter         *rate.Limiter
	converter       *md.Converter
	logger          *slog.Logger

	baseURL    string
	httpClient openai.HTTPDoer
	rpm        int
}

// AIOption configures an AIExtractor.
type AIOption func(*AIExtractor)

// WithModel sets the chat model.
func WithModel(model string) AIOption {
	return func(e *AIExtractor) {
		if model != "" {
			e.model = model
		}
	}
}

// WithBaseURL points the client at another OpenAI compatible endpoint.
func WithBaseURL(baseURL string) AIOption {
	return func(e *AIExtractor) {
		e.baseURL = baseURL
	}
}

// WithRequestsPerMinute caps the request rate. Non-positive values keep the default.
func WithRequestsPerMinute(rpm int) AIOption {
	return func(e *AIExtractor) {
		if rpm > 0 {
			e.rpm = rpm
		}
	}
}

// WithMaxContentBytes limits how much page text is sent to the model.
func WithMaxContentBytes(n int) AIOption {
	return func(e *AIExtractor) {
		if n > 0 {
			e.maxContentBytes = n
		}
	}
}

// WithAIHTTPClient sets the HTTP client used for API calls.
func WithAIHTTPClient(client openai.HTTPDoer) AIOption {
	return func(e *AIExtractor) {
		e.httpClient = client
	}
}

// WithAILogger sets the logger.
func WithAILogger(logger *slog.Logger) AIOption {
	return func(e *AIExtractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewAIExtractor creates an AIExtractor authenticated with apiKey.
func NewAIExtractor(apiKey string, opts ...AIOption) *AIExtractor {
	e := &AIExtractor{
		model:           DefaultAIModel,
		maxContentBytes: DefaultMaxContentBytes,
		rpm:             DefaultRequestsPerMinute,
		converter:       md.NewConverter("", true, nil),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	cfg := openai.DefaultConfig(apiKey)
	if e.baseURL != "" {
		cfg.BaseURL = e.baseURL
	}
	if e.httpClient != nil {
		cfg.HTTPClient = e.httpClient
	}
	e.client = openai.NewClientWithConfig(cfg)

	// One token per request, refilled evenly over the minute.
	e.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(e.rpm)), 1)

	return e
}

// Extract asks the model for an annotation of the page.
// A reply that is not a JSON object or array of objects yields nothing.
func (e *AIExtractor) Extract(ctx context.Context, pageURL, content, title string) ([]model.Annotation, error) {
	text := e.pageText(content)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(pageURL, title, text)},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", ErrGeneration)
	}

	reply := stripCodeFence(resp.Choices[0].Message.Content)
	annotations, err := decodeAnnotations([]byte(reply))
	if err != nil {
		e.logger.Debug("model reply is not JSON", "url", pageURL, "error", err)
		return nil, nil
	}

	e.logger.Debug("generated annotations", "url", pageURL, "count", len(annotations),
		"total_tokens", resp.Usage.TotalTokens)
	return annotations, nil
}

// pageText converts HTML to Markdown, which keeps the text and structure
// the model needs with far fewer tokens, and truncates it.
func (e *AIExtractor) pageText(content string) string {
	text, err := e.converter.ConvertString(content)
	if err != nil {
		text = content
	}
	return truncateUTF8(text, e.maxContentBytes)
}

func userPrompt(pageURL, title, text string) string {
	var sb strings.Builder
	sb.WriteString("URL: ")
	sb.WriteString(pageURL)
	sb.WriteString("\nTitle: ")
	sb.WriteString(title)
	sb.WriteString("\n\nPage content:\n")
	sb.WriteString(text)
	return sb.String()
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// stripCodeFence removes a Markdown code fence around a reply.
// Servers without JSON mode often wrap their answer in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
