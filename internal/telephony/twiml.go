package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"net/url"
	"strings"

	"voiceai-platform/internal/session"
)

// TwiML is a minimal Twilio Markup Language response builder. It
// intentionally avoids any provider SDK dependency; only the verbs used at
// the adapter boundary are modeled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Timeout       int      `xml:"timeout,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Verbs         []any    `xml:",any"`
}

type twimlDial struct {
	XMLName xml.Name `xml:"Dial"`
	Number  string   `xml:"Number,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlRedirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

// RenderOptions carries the per-call rendering context: callback URLs and
// the tenant's voice settings.
type RenderOptions struct {
	// ActionURL receives the next gather result.
	ActionURL string
	// PollURL is the continuation for redirect decisions; it must already
	// embed the task id.
	PollURL string

	Voice         string
	GatherTimeout int
	// Retried marks that the previous gather already came back empty once.
	// The fallback then hangs up instead of redirecting forever.
	Retried bool
}

// retryParam marks a gather fallback redirect so the next empty turn ends
// the call instead of looping.
const retryParam = "retry"

// RenderDecision maps an orchestrator decision to TwiML.
func RenderDecision(d session.Decision, opts RenderOptions) (string, error) {
	var r twimlResponse

	say := func(text string) {
		if strings.TrimSpace(text) != "" {
			r.Verbs = append(r.Verbs, twimlSay{Voice: opts.Voice, Text: text})
		}
	}

	switch d.Action {
	case session.ActionGather:
		if opts.ActionURL == "" {
			return "", errors.New("telephony: action url required for gather")
		}
		timeout := opts.GatherTimeout
		if timeout <= 0 {
			timeout = 5
		}
		g := twimlGather{
			Input:         "speech",
			Action:        opts.ActionURL,
			Method:        "POST",
			Timeout:       timeout,
			SpeechTimeout: "auto",
		}
		if strings.TrimSpace(d.Say) != "" {
			// Nesting the prompt lets callers barge in mid-sentence.
			g.Verbs = append(g.Verbs, twimlSay{Voice: opts.Voice, Text: d.Say})
		}
		r.Verbs = append(r.Verbs, g)

		if opts.Retried {
			say("I didn't hear anything. Please call back when you're ready. Goodbye!")
			r.Verbs = append(r.Verbs, twimlHangup{})
		} else {
			retryURL, err := WithRetryMarker(opts.ActionURL)
			if err != nil {
				return "", err
			}
			r.Verbs = append(r.Verbs, twimlRedirect{Method: "POST", URL: retryURL})
		}

	case session.ActionTransfer:
		if strings.TrimSpace(d.TransferTo) == "" {
			return "", errors.New("telephony: transfer_to required for transfer action")
		}
		say(d.Say)
		r.Verbs = append(r.Verbs, twimlDial{Number: d.TransferTo})
		// Spoken only when the dial fails to connect.
		say("We couldn't connect your call. Please call back later. Goodbye.")

	case session.ActionHangup:
		say(d.Say)
		r.Verbs = append(r.Verbs, twimlHangup{})

	case session.ActionRedirect:
		if opts.PollURL == "" {
			return "", errors.New("telephony: poll url required for redirect action")
		}
		say(d.Say)
		r.Verbs = append(r.Verbs, twimlPause{Length: 1})
		r.Verbs = append(r.Verbs, twimlRedirect{Method: "POST", URL: opts.PollURL})

	default:
		return "", errors.New("telephony: unknown action")
	}

	return encodeTwiML(r)
}

// RenderError is the last-resort response: the provider must always receive
// valid TwiML, never a bare error page.
func RenderError(voice string) string {
	out, err := encodeTwiML(twimlResponse{Verbs: []any{
		twimlSay{Voice: voice, Text: "We're sorry, we're experiencing technical difficulties. Please try your call again later."},
		twimlHangup{},
	}})
	if err != nil {
		// Static fallback; the struct form above cannot actually fail.
		return xml.Header + "<Response><Say>We're sorry, we're experiencing technical difficulties. Please try your call again later.</Say><Hangup></Hangup></Response>"
	}
	return out
}

// RenderUnavailable answers calls for unknown or deactivated tenants.
func RenderUnavailable() string {
	out, err := encodeTwiML(twimlResponse{Verbs: []any{
		twimlSay{Text: "This number is not currently in service. Goodbye."},
		twimlHangup{},
	}})
	if err != nil {
		return xml.Header + "<Response><Hangup></Hangup></Response>"
	}
	return out
}

// RenderBusy rejects calls over the tenant's concurrency cap.
func RenderBusy() string {
	out, err := encodeTwiML(twimlResponse{Verbs: []any{
		twimlSay{Text: "All of our lines are busy right now. Please call back in a few minutes. Goodbye."},
		twimlHangup{},
	}})
	if err != nil {
		return xml.Header + "<Response><Hangup></Hangup></Response>"
	}
	return out
}

// WithRetryMarker appends the retry flag to a callback URL.
func WithRetryMarker(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(retryParam, "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// IsRetried reports whether the request URL carries the retry marker.
func IsRetried(raw *url.URL) bool {
	return raw.Query().Get(retryParam) == "1"
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
