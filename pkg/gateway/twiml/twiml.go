// Package twiml builds the control-markup documents the carrier executes.
// It intentionally avoids any provider SDK dependency: the verbs we need are
// a handful of xml structs.
package twiml

import (
	"bytes"
	"encoding/xml"
)

// ContentType is what the carrier expects on control documents.
const ContentType = "text/xml; charset=utf-8"

// Document is one <Response> control document.
type Document struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type Say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

type Dial struct {
	XMLName  xml.Name `xml:"Dial"`
	CallerID string   `xml:"callerId,attr,omitempty"`
	Action   string   `xml:"action,attr,omitempty"`
	Method   string   `xml:"method,attr,omitempty"`
	Number   string   `xml:"Number,omitempty"`
	Sip      *Sip     `xml:"Sip,omitempty"`
}

type Sip struct {
	URI string `xml:",chardata"`
}

type Connect struct {
	XMLName xml.Name `xml:"Connect"`
	Stream  Stream   `xml:"Stream"`
}

type Stream struct {
	URL string `xml:"url,attr"`
}

type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Say           *Say     `xml:"Say,omitempty"`
	Play          *Play    `xml:"Play,omitempty"`
}

// DialNumber instructs the carrier to place an outbound call to number,
// presenting callerID, and to request actionURL once the leg completes.
func DialNumber(number, callerID, actionURL string) Document {
	return Document{Verbs: []any{
		Dial{CallerID: callerID, Action: actionURL, Method: "POST", Number: number},
	}}
}

// BridgeSIP connects the established call to a second SIP endpoint.
func BridgeSIP(sipURI string) Document {
	return Document{Verbs: []any{
		Dial{Sip: &Sip{URI: sipURI}},
	}}
}

// ConnectStream opens a bidirectional media stream to mediaURL.
func ConnectStream(mediaURL string) Document {
	return Document{Verbs: []any{
		Connect{Stream: Stream{URL: mediaURL}},
	}}
}

// PlayGather plays audioURL, then listens for speech and posts the result to
// actionURL. A trailing Redirect re-enters actionURL when the gather times
// out without speech, so silence still produces a callback.
func PlayGather(audioURL, actionURL string, timeoutSeconds int) Document {
	return Document{Verbs: []any{
		gather(actionURL, timeoutSeconds, &Play{URL: audioURL}, nil),
		Redirect{Method: "POST", URL: actionURL},
	}}
}

// SayGather speaks text, then listens for speech like PlayGather.
func SayGather(text, actionURL string, timeoutSeconds int) Document {
	return Document{Verbs: []any{
		gather(actionURL, timeoutSeconds, nil, &Say{Text: text}),
		Redirect{Method: "POST", URL: actionURL},
	}}
}

// SayHangup is the terminal fallback: speak one line, then hang up.
func SayHangup(text string) Document {
	return Document{Verbs: []any{Say{Text: text}, Hangup{}}}
}

func gather(actionURL string, timeoutSeconds int, play *Play, say *Say) Gather {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 5
	}
	return Gather{
		Input:         "speech",
		Action:        actionURL,
		Method:        "POST",
		Timeout:       timeoutSeconds,
		SpeechTimeout: "auto",
		Play:          play,
		Say:           say,
	}
}

// Render serializes a document with the XML declaration. Builders only
// assemble well-formed structs, so marshaling cannot fail.
func Render(doc Document) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		// Unreachable for the verb structs above; keep the document
		// well-formed for the carrier regardless.
		return []byte(xml.Header + "<Response><Hangup/></Response>")
	}
	_ = enc.Flush()
	return buf.Bytes()
}
