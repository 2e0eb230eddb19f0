package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/llm/provider"
	"github.com/papercomputeco/vellum/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/vellum/pkg/sse"
)

const formatB = "event: message_start\n" +
	"data: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\"}}\n\n" +
	"event: content_block_start\n" +
	"data: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n" +
	"event: ping\n" +
	"data: {\"type\":\"ping\"}\n\n" +
	"event: content_block_delta\n" +
	"data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}\n\n" +
	"event: content_block_delta\n" +
	"data: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\" there\"}}\n\n" +
	"event: content_block_stop\n" +
	"data: {\"type\":\"content_block_stop\",\"index\":0}\n\n" +
	"event: message_stop\n" +
	"data: {\"type\":\"message_stop\"}\n\n"

var _ = Describe("Anthropic Provider", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		p        provider.Provider
		received map[string]any
		headers  http.Header
	)

	BeforeEach(func() {
		received = nil
		headers = nil
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/messages"))
			headers = r.Header.Clone()
			_ = json.NewDecoder(r.Body).Decode(&received)
			handler(w, r)
		}))

		var err error
		p, err = anthropic.New(anthropic.Config{
			BaseURL: server.URL,
			APIKey:  "sk-ant-test",
			Model:   "claude-sonnet-4-5",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("New", func() {
		It("requires an API key", func() {
			_, err := anthropic.New(anthropic.Config{Model: "claude-sonnet-4-5"})

			var cfgErr *llm.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Field).To(Equal("api_key"))
		})
	})

	Describe("ParseStreamChunk", func() {
		It("extracts content_block_delta text", func() {
			chunk, err := p.ParseStreamChunk(&sse.Event{
				Type: "content_block_delta",
				Data: `{"type":"content_block_delta","delta":{"type":"text_delta","text":"hi"}}`,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Text).To(Equal("hi"))
		})

		It("skips other event types", func() {
			chunk, err := p.ParseStreamChunk(&sse.Event{Data: `{"type":"message_stop"}`})
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk).To(BeNil())
		})
	})

	Describe("CompleteStream", func() {
		It("streams delta text until the connection closes", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = w.Write([]byte(formatB))
			}

			stream, err := p.CompleteStream(context.Background(), &llm.ChatRequest{
				System:   "use the notes",
				Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")},
			})
			Expect(err).NotTo(HaveOccurred())

			var b strings.Builder
			for text, err := range stream.Text() {
				Expect(err).NotTo(HaveOccurred())
				b.WriteString(text)
			}
			Expect(b.String()).To(Equal("Hello there"))

			Expect(headers.Get("x-api-key")).To(Equal("sk-ant-test"))
			Expect(headers.Get("anthropic-version")).To(Equal(anthropic.APIVersion))
			Expect(received["system"]).To(Equal("use the notes"))
			Expect(received["max_tokens"]).To(BeNumerically("==", anthropic.DefaultMaxTokens))
			Expect(received["stream"]).To(BeTrue())
		})

		It("returns a backend error with the body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"type":"error","error":{"message":"bad model"}}`))
			}

			_, err := p.CompleteStream(context.Background(), &llm.ChatRequest{})

			var backendErr *llm.BackendError
			Expect(errors.As(err, &backendErr)).To(BeTrue())
			Expect(backendErr.Provider).To(Equal("anthropic"))
			Expect(backendErr.Body).To(ContainSubstring("bad model"))
		})
	})

	Describe("Complete", func() {
		It("joins text blocks", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{
					"type": "message",
					"model": "claude-sonnet-4-5",
					"content": [{"type": "text", "text": "Short "}, {"type": "text", "text": "answer."}],
					"stop_reason": "end_turn",
					"usage": {"input_tokens": 10, "output_tokens": 2}
				}`))
			}

			resp, err := p.Complete(context.Background(), &llm.ChatRequest{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message.Content).To(Equal("Short answer."))
			Expect(resp.Usage.TotalTokens).To(Equal(12))
			Expect(received["stream"]).To(BeNil())
		})
	})

	Describe("Embed", func() {
		It("is unsupported", func() {
			_, err := p.Embed(context.Background(), "text")
			Expect(err).To(MatchError(llm.ErrEmbeddingUnsupported))
		})
	})
})
