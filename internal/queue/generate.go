package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mnandhu/learningpath/pkg/config"
)

// GenerateMessage requests one generation run. Limit zero means the
// configured default.
type GenerateMessage struct {
	Domain string `json:"domain"`
	Limit  int    `json:"limit"`
}

// Runner executes one generation run.
type Runner interface {
	Run(ctx context.Context, domain string, limit int) error
}

// ProcessGenerateMessage decodes a generate request and executes it. An
// undecodable body is a permanent failure; the caller routes it to the
// dead-letter queue rather than retrying.
func ProcessGenerateMessage(ctx context.Context, runner Runner, body string) error {
	var msg GenerateMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("invalid generate message: %w", err)
	}
	if msg.Domain == "" {
		msg.Domain = config.DefaultDomain
	}
	if _, ok := config.Domains[msg.Domain]; !ok {
		return fmt.Errorf("unknown domain in generate message: %s", msg.Domain)
	}
	return runner.Run(ctx, msg.Domain, msg.Limit)
}
