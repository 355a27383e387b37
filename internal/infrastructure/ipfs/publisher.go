// Package ipfs publishes notification payloads to an IPFS HTTP API.
package ipfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	shell "github.com/ipfs/go-ipfs-api"

	"github.com/notify-dapp/internal/domain"
)

const DefaultAPIURL = "https://ipfs.infura.io:5001"

// Publisher adds payloads to IPFS and pins them.
type Publisher struct {
	sh *shell.Shell
}

func NewPublisher(apiURL string, timeout time.Duration) *Publisher {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Publisher{sh: shell.NewShellWithClient(apiURL, &http.Client{Timeout: timeout})}
}

// Publish returns the CID of the stored payload. The request is bound to ctx.
func (p *Publisher) Publish(ctx context.Context, payload []byte) (string, error) {
	var out struct {
		Hash string
	}
	err := p.sh.Request("add").
		Option("pin", true).
		FileBody(bytes.NewReader(payload)).
		Exec(ctx, &out)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w: %v", domain.ErrPublish, err)
	}
	if out.Hash == "" {
		return "", fmt.Errorf("ipfs add: empty cid: %w", domain.ErrPublish)
	}
	return out.Hash, nil
}

// Fetch reads a previously published payload back through the API.
func (p *Publisher) Fetch(ctx context.Context, pointer string) ([]byte, error) {
	if _, err := cid.Decode(pointer); err != nil {
		return nil, fmt.Errorf("pointer %q: %w", pointer, domain.ErrBadRequest)
	}
	resp, err := p.sh.Request("cat", pointer).Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w: %v", pointer, domain.ErrNetwork, err)
	}
	defer resp.Close()
	if resp.Error != nil {
		if strings.Contains(strings.ToLower(resp.Error.Message), "not found") {
			return nil, fmt.Errorf("ipfs cat %s: %w", pointer, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("ipfs cat %s: %w: %v", pointer, domain.ErrNetwork, resp.Error)
	}
	b, err := io.ReadAll(resp.Output)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w: %v", pointer, domain.ErrNetwork, err)
	}
	return b, nil
}
