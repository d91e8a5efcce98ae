package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rag-chat-client/apperr"
)

// queryResult is the non-streamed response shape. Payload may be a plain
// string or an arbitrary JSON object.
type queryResult struct {
	Succeeded bool            `json:"succeeded"`
	Payload   json.RawMessage `json:"payload"`
}

// SubmitQuery submits a prompt to a query engine and returns a channel of
// stream chunks. The channel carries the response text in receipt order and
// is closed after exactly one terminal event: Done on success, Err on
// failure. A non-streamed JSON body is delivered as a single content chunk
// followed by Done.
func (c *Client) SubmitQuery(ctx context.Context, query QueryRequest) (<-chan StreamChunk, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/query", query)
	if err != nil {
		return nil, err
	}

	responseChan := make(chan StreamChunk)

	go func() {
		defer close(responseChan)

		resp, err := c.client.Do(req)
		if err != nil {
			responseChan <- StreamChunk{Err: apperr.New(apperr.KindTransport, fmt.Errorf("failed to send request: %w", err))}
			return
		}
		defer resp.Body.Close()

		if err := c.checkStatus(resp); err != nil {
			responseChan <- StreamChunk{Err: err}
			return
		}

		if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			c.pumpJSONBody(resp.Body, responseChan)
			return
		}
		c.pumpStream(resp.Body, responseChan)
	}()

	return responseChan, nil
}

// pumpJSONBody handles the batched response form {succeeded, payload}.
func (c *Client) pumpJSONBody(body io.Reader, out chan<- StreamChunk) {
	var result queryResult
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		out <- StreamChunk{Err: apperr.New(apperr.KindTransport, fmt.Errorf("failed to decode response: %w", err))}
		return
	}

	text := payloadText(result.Payload)
	if !result.Succeeded {
		out <- StreamChunk{Err: apperr.Newf(apperr.KindRejected, "query rejected by server: %s", text)}
		return
	}

	if text != "" {
		out <- StreamChunk{Content: text}
	}
	out <- StreamChunk{Done: true}
}

// pumpStream forwards chunked text tokens until end of stream.
func (c *Client) pumpStream(body io.Reader, out chan<- StreamChunk) {
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			out <- StreamChunk{Content: string(buf[:n])}
		}
		if errors.Is(err, io.EOF) {
			out <- StreamChunk{Done: true}
			return
		}
		if err != nil {
			out <- StreamChunk{Err: apperr.New(apperr.KindTransport, fmt.Errorf("stream error: %w", err))}
			return
		}
	}
}

// payloadText renders a payload for display: strings as-is, anything else
// as compact JSON.
func payloadText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
