package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ent0n29/switchboard/internal/routing"
)

const (
	DefaultAnthropicModel = "claude-sonnet-4-5"
	classifyMaxTokens     = 32
	respondMaxTokens      = 1024
)

// AnthropicOracle classifies and answers with the Messages API.
type AnthropicOracle struct {
	client anthropic.Client
	model  string
	routes []routing.Route
}

func NewAnthropicOracle(apiKey, model string, routes []routing.Route, opts ...option.RequestOption) *AnthropicOracle {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicOracle{
		client: anthropic.NewClient(opts...),
		model:  model,
		routes: routes,
	}
}

func (o *AnthropicOracle) Name() string { return "anthropic" }

func (o *AnthropicOracle) Classify(ctx context.Context, req Request) (string, error) {
	return o.complete(ctx, classifySystemPrompt(o.routes), classifyUserPrompt(req), classifyMaxTokens)
}

func (o *AnthropicOracle) Respond(ctx context.Context, route string, req Request) (string, error) {
	return o.complete(ctx, respondSystemPrompt(route, o.routes), respondUserPrompt(req), respondMaxTokens)
}

func (o *AnthropicOracle) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	message, err := o.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(o.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", errors.New("no text content in anthropic response")
}

func classifySystemPrompt(routes []routing.Route) string {
	var b strings.Builder
	b.WriteString("You route customer messages for an electronics retailer to the specialised team best suited to answer them.\n\nAvailable routes:\n")
	names := make([]string, 0, len(routes))
	for _, r := range routes {
		names = append(names, r.Name)
		b.WriteString("- ")
		b.WriteString(r.Name)
		if r.Description != "" {
			b.WriteString(": ")
			b.WriteString(r.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with ONLY the route name (")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(") and a confidence score between 0 and 1, separated by a comma.\nExample response: sales, 0.95")
	return b.String()
}

func classifyUserPrompt(req Request) string {
	out := fmt.Sprintf("Customer message: %q", req.Message)
	if req.Context != "" {
		out += "\n\nConversation context:\n" + req.Context
	}
	return out
}

func respondSystemPrompt(route string, routes []routing.Route) string {
	desc := ""
	for _, r := range routes {
		if r.Name == route {
			desc = r.Description
			break
		}
	}
	prompt := fmt.Sprintf("You are the %s agent for an electronics retailer's customer support desk.", strings.ReplaceAll(route, "_", " "))
	if desc != "" {
		prompt += " You handle: " + desc + "."
	}
	return prompt + " Give a helpful, accurate and professional answer. Keep it concise but complete. Never invent order numbers or prices."
}

func respondUserPrompt(req Request) string {
	out := fmt.Sprintf("Customer message: %q", req.Message)
	if req.Context != "" {
		out += "\n\nPrevious conversation:\n" + req.Context
	}
	return out
}
