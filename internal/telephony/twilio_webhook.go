package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// VoiceWebhookForm captures the subset of Twilio voice webhook fields the
// conversation pipeline consumes. Twilio posts
// application/x-www-form-urlencoded.
//
// This is a provider adapter type only; no business logic lives here.
type VoiceWebhookForm struct {
	CallSid    string
	AccountSid string
	From       string
	To         string
	CallStatus string

	// SpeechResult is the gather transcription; Digits is DTMF input.
	SpeechResult string
	Digits       string

	RecordingURL string
}

func ParseVoiceWebhook(r *http.Request) (VoiceWebhookForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceWebhookForm{}, err
	}
	return VoiceWebhookForm{
		CallSid:      r.PostFormValue("CallSid"),
		AccountSid:   r.PostFormValue("AccountSid"),
		From:         strings.TrimSpace(r.PostFormValue("From")),
		To:           strings.TrimSpace(r.PostFormValue("To")),
		CallStatus:   r.PostFormValue("CallStatus"),
		SpeechResult: strings.TrimSpace(r.PostFormValue("SpeechResult")),
		Digits:       strings.TrimSpace(r.PostFormValue("Digits")),
		RecordingURL: strings.TrimSpace(r.PostFormValue("RecordingUrl")),
	}, nil
}

// Speech returns the caller input for the turn, preferring the speech
// transcription over DTMF digits.
func (f VoiceWebhookForm) Speech() string {
	if f.SpeechResult != "" {
		return f.SpeechResult
	}
	return f.Digits
}

const signatureHeader = "X-Twilio-Signature"

// ValidateSignature checks the provider's webhook signature: HMAC-SHA1 over
// the full callback URL concatenated with the sorted form parameters, base64
// encoded. Comparison is constant-time.
func ValidateSignature(authToken, fullURL string, form url.Values, signature string) bool {
	if authToken == "" || signature == "" {
		return false
	}

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload computes the signature Twilio would send for a URL and form.
// Exposed for tests and local tooling.
func SignPayload(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
