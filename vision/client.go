// Package vision talks to the AI model that identifies insect specimens
// and writes ecological commentary. The service has no SLA: image
// classification failures propagate, find descriptions degrade to a
// placeholder so a save is never blocked on commentary.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned when no API key is present.
var ErrNotConfigured = errors.New("APIキーが設定されていません。.envファイルにOPENAI_API_KEYを設定してください。")

const (
	defaultModel  = "gpt-4o-mini"
	detailedModel = "gpt-4o"
)

// Classification is the oracle's species guess. The detailed fields are
// only populated by the premium analysis.
type Classification struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	CommonName      string `json:"commonName,omitempty"`
	Characteristics string `json:"characteristics,omitempty"`
	Habitat         string `json:"habitat,omitempty"`
	Season          string `json:"season,omitempty"`
	Confidence      int    `json:"confidence,omitempty"`
}

type Link struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// FindDetails is the ecological commentary attached to a saved entry.
type FindDetails struct {
	Description string `json:"description"`
	Links       []Link `json:"links"`
}

type Client struct {
	api           *openai.Client
	model         string
	detailedModel string
}

// NewClientFromEnv returns a client, or nil when OPENAI_API_KEY is not
// set. All methods tolerate a nil receiver.
func NewClientFromEnv() *Client {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		log.Printf("[vision] OPENAI_API_KEY is not set; classification disabled")
		return nil
	}
	model := os.Getenv("VISION_MODEL")
	if model == "" {
		model = defaultModel
	}
	detailed := os.Getenv("VISION_DETAILED_MODEL")
	if detailed == "" {
		detailed = detailedModel
	}
	return &Client{api: openai.NewClient(key), model: model, detailedModel: detailed}
}

const analyzePrompt = `この画像に写っている昆虫の名前を特定し、その特徴や生態について簡潔に説明してください。日本語で回答してください。JSON形式で返してください。フォーマット: {"name": "昆虫の名前", "description": "特徴や生態の説明"}`

const analyzeDetailedPrompt = `この画像に写っている昆虫を詳細に分析してください。以下の情報を含めてJSON形式で返してください：
- name: 昆虫の正式名称（学名も可能であれば含める）
- commonName: 一般的な呼び名
- description: 詳細な特徴や生態の説明（200文字以上）
- characteristics: 外見的特徴（色、模様、サイズなど）
- habitat: 生息環境
- season: よく見られる季節
- confidence: 判定の信頼度（0-100の数値）

日本語で回答してください。JSON形式: {"name": "...", "commonName": "...", "description": "...", "characteristics": "...", "habitat": "...", "season": "...", "confidence": 数値}`

func (c *Client) analyze(ctx context.Context, model, prompt, imageDataURL string, temperature float32) (*Classification, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageDataURL}},
			},
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New("AIからの応答が空でした。")
	}
	var result Classification
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalyzeImage identifies the insect in a data-URL image. Errors block
// the save flow and surface to the user.
func (c *Client) AnalyzeImage(ctx context.Context, imageDataURL string) (*Classification, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	result, err := c.analyze(ctx, c.model, analyzePrompt, imageDataURL, 0)
	if err != nil {
		log.Printf("[vision][error] analyze failed: %v", err)
		return nil, fmt.Errorf("AI判定中にエラーが発生しました: %w", err)
	}
	return result, nil
}

// AnalyzeImageDetailed is the premium analysis: a stronger model and a
// richer prompt, silently falling back to the standard analysis when
// the model call fails.
func (c *Client) AnalyzeImageDetailed(ctx context.Context, imageDataURL string) (*Classification, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	result, err := c.analyze(ctx, c.detailedModel, analyzeDetailedPrompt, imageDataURL, 0.3)
	if err != nil {
		log.Printf("[vision][warn] detailed model failed, falling back: %v", err)
		return c.AnalyzeImage(ctx, imageDataURL)
	}
	return result, nil
}

// DescribeFind generates ecological commentary for a find at the given
// coordinates. It never fails: any internal error becomes the
// description text so the caller can persist the entry regardless.
func (c *Client) DescribeFind(ctx context.Context, name string, lat, lng float64) FindDetails {
	if c == nil {
		return FindDetails{
			Description: "APIキーが設定されていません。.envファイルにOPENAI_API_KEYを設定してください。",
			Links:       []Link{},
		}
	}
	prompt := fmt.Sprintf("私は現在、緯度%v, 経度%vの地点で「%s」という昆虫を採集しました。この昆虫についての詳細な生態情報と、この周辺地域での生息状況や関連する自然スポットを教えてください。", lat, lng, name)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		log.Printf("[vision][warn] describe failed: %v", err)
		return FindDetails{
			Description: fmt.Sprintf("AI情報の取得中にエラーが発生しました: %v", err),
			Links:       []Link{},
		}
	}
	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	if text == "" {
		text = "情報が見つかりませんでした。"
	}
	// The chat API carries no grounding metadata, so related-spot links
	// stay empty here.
	return FindDetails{Description: text, Links: []Link{}}
}
