package decoder

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SophiChat/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SophiChat/client/internal/shared/id"
	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Rule names reported in outcomes and metrics
const (
	RuleTranscription = "transcription"
	RuleAck           = "ack"
	RulePlumbing      = "plumbing"
	RuleAudio         = "audio"
	RuleText          = "text"
	RuleResidual      = "residual"
)

// BlobStore receives decoded audio and hands back a playable reference
type BlobStore interface {
	Put(mimeType string, data []byte) (types.AudioRef, error)
}

// Outcome is the result of decoding one frame: either Skip or one Event
type Outcome struct {
	Skip  bool
	Event *types.ChatEvent
	Rule  string
}

// Options configures a Decoder
type Options struct {
	AssetURL string
	Blobs    BlobStore
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Now      func() time.Time
}

// Decoder turns raw frames into chat events
type Decoder struct {
	assetBase *url.URL
	blobs     BlobStore
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	now       func() time.Time
}

// frame is the working state shared by the rules
type frame struct {
	value   interface{}
	obj     map[string]interface{}
	literal string
	// isLiteral marks a string frame that did not parse as JSON
	isLiteral bool
}

// New creates a decoder resolving graph paths against opts.AssetURL
func New(opts Options) (*Decoder, error) {
	base, err := url.Parse(opts.AssetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid asset url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Decoder{
		assetBase: base,
		blobs:     opts.Blobs,
		logger:    logger.Named("decoder"),
		metrics:   opts.Metrics,
		now:       now,
	}, nil
}

// Decode classifies one frame. It never fails: frames matching no rule are
// rendered as text.
func (d *Decoder) Decode(raw types.RawFrame) Outcome {
	f := parse(raw)

	for _, r := range rules {
		if out, ok := r.apply(d, f); ok {
			return d.finish(out)
		}
	}
	// The text rule always matches
	return d.finish(Outcome{Skip: true, Rule: RuleResidual})
}

func (d *Decoder) finish(out Outcome) Outcome {
	result := "event"
	if out.Skip {
		result = "skip"
	}
	d.metrics.RecordDecode(out.Rule, result)
	if out.Event != nil {
		if err := out.Event.Validate(); err != nil {
			d.logger.Debug("Decoded event violates invariants", zap.String("rule", out.Rule), zap.Error(err))
		}
	}
	return out
}

func (d *Decoder) event(role types.Role, kind types.Kind, text string) *types.ChatEvent {
	return &types.ChatEvent{
		ID:          string(id.NewEventID()),
		Role:        role,
		Kind:        kind,
		Text:        text,
		Attachments: []string{},
		CreatedAt:   d.now(),
	}
}

// parse attempts JSON on string frames; failures stay literal text
func parse(raw types.RawFrame) *frame {
	f := &frame{value: raw.Value}
	if s, ok := raw.Value.(string); ok {
		var v interface{}
		trimmed := strings.TrimSpace(s)
		if trimmed != "" && sonic.UnmarshalString(trimmed, &v) == nil {
			f.value = v
		} else {
			f.literal = s
			f.isLiteral = true
		}
	}
	if obj, ok := f.value.(map[string]interface{}); ok {
		f.obj = obj
	}
	return f
}
