package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stupiduntilnot/auctionbot/internal/transport"
)

// Telegram caps message text at 4096 characters; the formatter pages
// against this limit, the client truncates as a last resort.
const MaxMessageLength = 4096

// Client is a minimal Telegram Bot API client implementing
// transport.Transport.
type Client struct {
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a Telegram client for the given bot API base URL
// (e.g. "https://api.telegram.org/bot<token>").
func NewClient(apiBase string, requestTimeout time.Duration) *Client {
	return &Client{
		apiBase: apiBase,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Response is the generic Telegram API response wrapper.
type Response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

type tgRawUpdate struct {
	UpdateID      int64              `json:"update_id"`
	Message       *transport.Message `json:"message,omitempty"`
	CallbackQuery *tgCallbackQuery   `json:"callback_query,omitempty"`
}

type tgCallbackQuery struct {
	ID      string             `json:"id"`
	Data    string             `json:"data"`
	Message *transport.Message `json:"message,omitempty"`
}

// GetUpdates calls the getUpdates API. Callback queries are answered
// immediately (stops the client-side spinner) and surfaced as callback
// updates.
func (c *Client) GetUpdates(offset int64, timeout int) ([]transport.Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeout))

	resp, err := c.httpClient.Get(c.apiBase + "/getUpdates?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read getUpdates response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates response: %w", err)
	}

	if !tgResp.OK {
		return nil, nil
	}

	var raws []tgRawUpdate
	if err := json.Unmarshal(tgResp.Result, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates result: %w", err)
	}
	updates := make([]transport.Update, 0, len(raws))
	for _, ru := range raws {
		if ru.Message != nil {
			updates = append(updates, transport.Update{UpdateID: ru.UpdateID, Message: ru.Message})
			continue
		}
		if ru.CallbackQuery != nil && ru.CallbackQuery.Message != nil {
			data := strings.TrimSpace(ru.CallbackQuery.Data)
			updates = append(updates, transport.Update{
				UpdateID: ru.UpdateID,
				Callback: &transport.Callback{Data: data, Message: ru.CallbackQuery.Message},
			})
			_ = c.answerCallbackQuery(ru.CallbackQuery.ID)
		}
	}
	return updates, nil
}

type sendMessageRequest struct {
	ChatID      int64         `json:"chat_id"`
	Text        string        `json:"text"`
	ReplyMarkup *inlineMarkup `json:"reply_markup,omitempty"`
}

type editMessageRequest struct {
	ChatID      int64         `json:"chat_id"`
	MessageID   int64         `json:"message_id"`
	Text        string        `json:"text"`
	ReplyMarkup *inlineMarkup `json:"reply_markup,omitempty"`
}

type inlineMarkup struct {
	InlineKeyboard [][]transport.Button `json:"inline_keyboard"`
}

// SendMessage sends a plain text message to the given chat.
func (c *Client) SendMessage(chatID int64, text string) error {
	return c.postJSON("/sendMessage", sendMessageRequest{
		ChatID: chatID,
		Text:   truncate(text, MaxMessageLength),
	})
}

// SendMenu sends a message with an inline keyboard.
func (c *Client) SendMenu(chatID int64, text string, menu [][]transport.Button) error {
	return c.postJSON("/sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        truncate(text, MaxMessageLength),
		ReplyMarkup: markupFor(menu),
	})
}

// EditMessage replaces the text (and keyboard) of a previously sent
// message. The refinement conversation reuses one menu message this way.
func (c *Client) EditMessage(chatID, messageID int64, text string, menu [][]transport.Button) error {
	return c.postJSON("/editMessageText", editMessageRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        truncate(text, MaxMessageLength),
		ReplyMarkup: markupFor(menu),
	})
}

// SendPhoto uploads a PNG with a caption via multipart sendPhoto.
func (c *Client) SendPhoto(chatID int64, caption string, png []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("telegram sendPhoto build failed: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", truncate(caption, 1024)); err != nil {
			return fmt.Errorf("telegram sendPhoto build failed: %w", err)
		}
	}
	part, err := w.CreateFormFile("photo", "chart.png")
	if err != nil {
		return fmt.Errorf("telegram sendPhoto build failed: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return fmt.Errorf("telegram sendPhoto build failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("telegram sendPhoto build failed: %w", err)
	}

	resp, err := c.httpClient.Post(c.apiBase+"/sendPhoto", w.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("telegram sendPhoto request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram sendPhoto non-success status=%d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s marshal failed: %w", method, err)
	}
	resp, err := c.httpClient.Post(c.apiBase+method, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body) // drain
	return nil
}

func (c *Client) answerCallbackQuery(callbackID string) error {
	callbackID = strings.TrimSpace(callbackID)
	if callbackID == "" {
		return nil
	}
	return c.postJSON("/answerCallbackQuery", map[string]string{
		"callback_query_id": callbackID,
	})
}

func markupFor(menu [][]transport.Button) *inlineMarkup {
	if len(menu) == 0 {
		return nil
	}
	return &inlineMarkup{InlineKeyboard: menu}
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
