package decoder

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/SophiChat/client/internal/blob"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// rule is one predicate/extractor pair; the first that reports ok wins
type rule struct {
	name  string
	apply func(d *Decoder, f *frame) (Outcome, bool)
}

var rules = []rule{
	{RuleTranscription, transcriptionRule},
	{RuleAck, ackRule},
	{RulePlumbing, plumbingRule},
	{RuleAudio, audioRule},
	{RuleText, textRule},
}

var ackStatuses = map[string]bool{
	"received":         true,
	"processing":       true,
	"processing_audio": true,
}

// legacyEnvelope matches 42["message","<escaped json>"]
var legacyEnvelope = regexp.MustCompile(`(?s)^\s*\d+\["message","(.*)"\]\s*$`)

func transcriptionRule(d *Decoder, f *frame) (Outcome, bool) {
	if f.obj == nil || stringField(f.obj, "status") != "transcription_complete" {
		return Outcome{}, false
	}

	text := ""
	switch msg := f.obj["message"].(type) {
	case map[string]interface{}:
		text = firstString(msg, "content", "text")
	case string:
		text = nestedContent(msg, "content", "text")
	}
	if text == "" {
		text = stringField(f.obj, "text")
	}

	return Outcome{
		Event: d.event(types.RoleUser, types.KindTranscription, text),
		Rule:  RuleTranscription,
	}, true
}

func ackRule(_ *Decoder, f *frame) (Outcome, bool) {
	if f.obj == nil || !ackStatuses[stringField(f.obj, "status")] {
		return Outcome{}, false
	}
	if _, ok := f.obj["messageType"]; !ok {
		return Outcome{}, false
	}
	return Outcome{Skip: true, Rule: RuleAck}, true
}

func plumbingRule(_ *Decoder, f *frame) (Outcome, bool) {
	if f.obj == nil || !has(f.obj, "socketId") || !has(f.obj, "timestamp") {
		return Outcome{}, false
	}
	if has(f.obj, "text") || has(f.obj, "message") {
		return Outcome{}, false
	}
	if _, ok := f.obj["content"].(string); ok {
		return Outcome{}, false
	}
	return Outcome{Skip: true, Rule: RulePlumbing}, true
}

func audioRule(d *Decoder, f *frame) (Outcome, bool) {
	if f.obj == nil || d.blobs == nil {
		return Outcome{}, false
	}
	encoded, ok := f.obj["audioData"].(string)
	if !ok || encoded == "" {
		return Outcome{}, false
	}

	data, urlMIME, err := decodeAudio(encoded)
	if err != nil {
		d.logger.Debug("Undecodable audio payload", zap.Error(err))
		return Outcome{}, false
	}

	mimeType := stringField(f.obj, "mimeType")
	if mimeType == "" {
		if meta, ok := f.obj["metadata"].(map[string]interface{}); ok {
			mimeType = stringField(meta, "mimeType")
		}
	}
	if mimeType == "" {
		mimeType = urlMIME
	}
	if mimeType == "" {
		mimeType = blob.DefaultMIMEType
	}

	ref, err := d.blobs.Put(mimeType, data)
	if err != nil {
		d.logger.Debug("Audio payload rejected by blob store", zap.Error(err))
		return Outcome{}, false
	}

	text := probe(f.obj, "content", "message")
	if text == "" {
		text = stringField(f.obj, "text")
	}
	if text == "" {
		text = "Audio"
	}

	ev := d.event(types.RoleAssistant, types.KindAudio, text)
	ev.AudioRef = ref
	return Outcome{Event: ev, Rule: RuleAudio}, true
}

// decodeAudio strips a data: URL prefix and decodes base64
func decodeAudio(encoded string) ([]byte, string, error) {
	mimeType := ""
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 {
			return nil, "", base64.CorruptInputError(0)
		}
		header := encoded[len("data:"):comma]
		mimeType, _, _ = strings.Cut(header, ";")
		encoded = encoded[comma+1:]
	}
	encoded = strings.TrimSpace(encoded)

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", base64.CorruptInputError(0)
	}
	return data, mimeType, nil
}

func textRule(d *Decoder, f *frame) (Outcome, bool) {
	value := f.value
	text := ""

	if f.isLiteral {
		value = nil
		text = f.literal
		if m := legacyEnvelope.FindStringSubmatch(f.literal); m != nil {
			inner := strings.ReplaceAll(m[1], `\"`, `"`)
			var parsed interface{}
			if err := sonic.UnmarshalString(inner, &parsed); err == nil {
				value = parsed
				text = ""
			} else {
				text = inner
			}
		}
	}

	var attachments []string
	if obj, ok := value.(map[string]interface{}); ok {
		text = probe(obj, "message", "content", "userMessage", "text")
		attachments = d.graphs(obj)
	} else if s, ok := value.(string); ok {
		text = s
	}
	stringified := false
	if text == "" && value != nil {
		text = stringify(value)
		stringified = true
	}

	// Stringified objects have sorted keys, so the guard reads the value itself
	if obj, ok := value.(map[string]interface{}); ok && stringified {
		if isTechnicalObject(obj) {
			return Outcome{Skip: true, Rule: RuleResidual}, true
		}
	} else if isTechnical(text) {
		return Outcome{Skip: true, Rule: RuleResidual}, true
	}

	kind := types.KindText
	if len(attachments) > 0 {
		kind = types.KindImage
	}
	ev := d.event(types.RoleAssistant, kind, text)
	if len(attachments) > 0 {
		ev.Attachments = attachments
	}
	return Outcome{Event: ev, Rule: RuleText}, true
}

// graphs resolves quoteData.graphs against the asset host
func (d *Decoder) graphs(obj map[string]interface{}) []string {
	quote, ok := obj["quoteData"].(map[string]interface{})
	if !ok {
		return nil
	}
	list, ok := quote["graphs"].([]interface{})
	if !ok {
		return nil
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		path, ok := item.(string)
		if !ok || strings.TrimSpace(path) == "" {
			continue
		}
		out = append(out, d.resolve(strings.TrimSpace(path)))
	}
	return out
}

func (d *Decoder) resolve(path string) string {
	ref, err := d.assetBase.Parse(path)
	if err != nil {
		return path
	}
	return ref.String()
}

// isTechnical catches envelopes that survived as text
func isTechnical(text string) bool {
	return strings.HasPrefix(text, `{"socketId":`) &&
		strings.Contains(text, "timestamp") &&
		!strings.Contains(text, "text")
}

func isTechnicalObject(obj map[string]interface{}) bool {
	return has(obj, "socketId") && has(obj, "timestamp") && !has(obj, "text")
}

// probe returns the first usable text among keys. Each key may hold a
// string, a JSON string with a nested content field, or an object with one.
func probe(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if s := nestedContent(v, "content"); s != "" {
				return s
			}
		case map[string]interface{}:
			if s := stringField(v, "content"); s != "" {
				return s
			}
			return stringify(v)
		case float64, bool:
			return stringify(v)
		}
	}
	return ""
}

// nestedContent unwraps a string holding a JSON object with one of keys
func nestedContent(s string, keys ...string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		var inner map[string]interface{}
		if sonic.UnmarshalString(trimmed, &inner) == nil {
			if found := firstString(inner, keys...); found != "" {
				return found
			}
		}
	}
	return trimmed
}

func firstString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if s := stringField(obj, key); s != "" {
			return s
		}
	}
	return ""
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

func has(obj map[string]interface{}, key string) bool {
	v, ok := obj[key]
	return ok && v != nil
}

// stringify renders a value as JSON with sorted keys
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	s, err := sonic.ConfigStd.MarshalToString(v)
	if err != nil {
		return ""
	}
	return s
}
