package delivery

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/notify-dapp/internal/domain"
)

// Display strings of secret notifications; the real content travels encrypted.
const (
	SecretTitle = "You have a secret message!"
	SecretBody  = "Open the app to see your secret message!"
)

// FieldEncrypter seals a single payload field under the attempt secret.
type FieldEncrypter interface {
	EncryptField(plaintext, secret string) (string, error)
}

// Composer builds the payload document from a validated draft.
type Composer struct {
	Fields FieldEncrypter
}

// Compose maps a draft to its payload. Disabled optional fields are carried as
// empty strings. enc is required for Secret drafts and ignored otherwise.
func (c Composer) Compose(d *domain.Draft, enc *domain.EncryptionContext) (*domain.Payload, error) {
	sub, msg, cta, img := enabled(d.SubjectEnabled, d.Subject), d.Body, enabled(d.CTAEnabled, d.CTA), enabled(d.MediaEnabled, d.Media)

	p := &domain.Payload{
		Notification: domain.Display{Title: sub, Body: msg},
		Data: domain.PayloadData{
			Type: d.Type.Tag(),
			ASub: sub,
			AMsg: msg,
			ACta: cta,
			AImg: img,
		},
	}

	if d.Type == domain.TypeSecret {
		if enc == nil || enc.Secret == "" || enc.WrappedSecret == "" {
			return nil, errors.New("secret notification needs an encryption context")
		}
		p.Notification = domain.Display{Title: SecretTitle, Body: SecretBody}
		p.Data.Secret = enc.WrappedSecret
		for _, f := range []*string{&p.Data.ASub, &p.Data.AMsg, &p.Data.ACta, &p.Data.AImg} {
			ct, err := c.Fields.EncryptField(*f, enc.Secret)
			if err != nil {
				return nil, fmt.Errorf("encrypt payload field: %w", err)
			}
			*f = ct
		}
	}

	if d.Type == domain.TypeSubset {
		p.Data.Recipients = d.Recipients.List()
	}
	return p, nil
}

// Serialize renders the payload as JSON. Field order follows the struct
// definitions so equal payloads produce equal bytes.
func Serialize(p *domain.Payload) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

func enabled(on bool, v string) string {
	if !on {
		return ""
	}
	return v
}
