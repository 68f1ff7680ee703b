package generator

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"VidyaSync/internal/models"
	"VidyaSync/pkg/errors"
	"VidyaSync/pkg/llm"
	"VidyaSync/pkg/tts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply string
	err   error
	block bool
	calls int32
}

func (f *fakeModel) Transcribe(ctx context.Context, req llm.TranscriptionRequest) (*llm.TranscriptionResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.TranscriptionResponse{Content: f.reply}, nil
}

func TestGenerateTranscript(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and sorts segments", func(t *testing.T) {
		m := &fakeModel{reply: "```json\n" + `{"segments":[
			{"start":"00:05","end":"00:10","text":" दूसरा "},
			{"start":"00:00","end":"00:05","text":"पहला"}]}` + "\n```"}
		g := NewTranscriptGenerator(m, time.Second, nil)

		segs, err := g.GenerateTranscript(ctx, "https://cdn.example.com/v.mp4", "Hindi")
		require.NoError(t, err)
		assert.Equal(t, []models.TranscriptSegment{
			{Start: "0:00", End: "0:05", Text: "पहला"},
			{Start: "0:05", End: "0:10", Text: "दूसरा"},
		}, segs)
	})

	t.Run("flat text is a validation error", func(t *testing.T) {
		for _, reply := range []string{`{"transcript":"all of it in one block"}`, "all of it in one block"} {
			g := NewTranscriptGenerator(&fakeModel{reply: reply}, time.Second, nil)
			_, err := g.GenerateTranscript(ctx, "u", "Hindi")
			assert.True(t, errors.IsValidation(err), "reply %q: %v", reply, err)
		}
	})

	t.Run("start not before end is a validation error", func(t *testing.T) {
		g := NewTranscriptGenerator(&fakeModel{reply: `{"segments":[{"start":"0:05","end":"0:02","text":"x"}]}`}, time.Second, nil)
		_, err := g.GenerateTranscript(ctx, "u", "Hindi")
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("zero segments is a generation error", func(t *testing.T) {
		g := NewTranscriptGenerator(&fakeModel{reply: `{"segments":[]}`}, time.Second, nil)
		_, err := g.GenerateTranscript(ctx, "u", "Hindi")
		assert.True(t, errors.IsGeneration(err))
	})

	t.Run("model failure is a generation error", func(t *testing.T) {
		g := NewTranscriptGenerator(&fakeModel{err: stderrors.New("unreachable")}, time.Second, nil)
		_, err := g.GenerateTranscript(ctx, "u", "Hindi")
		assert.True(t, errors.IsGeneration(err))
		assert.True(t, errors.Retryable(err))
	})

	t.Run("timeout is a generation error", func(t *testing.T) {
		g := NewTranscriptGenerator(&fakeModel{block: true}, 20*time.Millisecond, nil)
		_, err := g.GenerateTranscript(ctx, "u", "Hindi")
		require.True(t, errors.IsGeneration(err))
		assert.Contains(t, err.Error(), "timed out")
	})
}

type fakeSynth struct {
	mu       sync.Mutex
	texts    []string
	emptyFor string
	failFor  string
	inflight int32
	peak     int32
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string, voice tts.Voice) ([]byte, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if text == f.failFor {
		return nil, stderrors.New("quota exceeded")
	}
	if text == f.emptyFor {
		return nil, nil
	}
	return []byte(voice.Name + ":" + text), nil
}

func (f *fakeSynth) MimeType() string { return "audio/mp3" }

func segments(n int) []models.TranscriptSegment {
	out := make([]models.TranscriptSegment, n)
	for i := range out {
		out[i] = models.TranscriptSegment{
			Start: "0:00",
			End:   "0:05",
			Text:  "segment-" + string(rune('a'+i)),
		}
	}
	return out
}

func TestGenerateDubAudio(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves order and timing", func(t *testing.T) {
		s := &fakeSynth{}
		g := NewDubGenerator(s, 2, time.Second, nil)
		in := []models.TranscriptSegment{
			{Start: "0:00", End: "0:05", Text: "नमस्ते"},
			{Start: "0:05", End: "0:10", Text: "दुनिया"},
		}

		out, err := g.GenerateDubAudio(ctx, in, "Hindi")
		require.NoError(t, err)
		require.Len(t, out, 2)
		for i := range in {
			assert.Equal(t, in[i], out[i].TranscriptSegment)
			mime, audio, err := tts.DecodeDataURI(out[i].AudioDataURI)
			require.NoError(t, err)
			assert.Equal(t, "audio/mp3", mime)
			assert.Equal(t, "hi-IN-Neural2-A:"+in[i].Text, string(audio))
		}
	})

	t.Run("bounded concurrency", func(t *testing.T) {
		s := &fakeSynth{}
		g := NewDubGenerator(s, 3, time.Second, nil)
		_, err := g.GenerateDubAudio(ctx, segments(12), "Tamil")
		require.NoError(t, err)
		assert.LessOrEqual(t, atomic.LoadInt32(&s.peak), int32(3))
	})

	t.Run("empty payload fails the whole operation", func(t *testing.T) {
		s := &fakeSynth{emptyFor: "segment-c"}
		g := NewDubGenerator(s, 2, time.Second, nil)
		out, err := g.GenerateDubAudio(ctx, segments(5), "Tamil")
		assert.Nil(t, out)
		assert.True(t, errors.IsGeneration(err))
	})

	t.Run("synthesis error fails the whole operation", func(t *testing.T) {
		s := &fakeSynth{failFor: "segment-a"}
		g := NewDubGenerator(s, 1, time.Second, nil)
		_, err := g.GenerateDubAudio(ctx, segments(3), "Tamil")
		assert.True(t, errors.IsGeneration(err))
	})

	t.Run("no segments", func(t *testing.T) {
		g := NewDubGenerator(&fakeSynth{}, 1, time.Second, nil)
		_, err := g.GenerateDubAudio(ctx, nil, "Tamil")
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("long text is truncated", func(t *testing.T) {
		s := &fakeSynth{}
		g := NewDubGenerator(s, 1, time.Second, nil)
		long := strings.Repeat("क", MaxSpeechChars+10)
		_, err := g.GenerateDubAudio(ctx, []models.TranscriptSegment{{Start: "0:00", End: "0:05", Text: long}}, "Hindi")
		require.NoError(t, err)
		require.Len(t, s.texts, 1)
		assert.Equal(t, MaxSpeechChars, utf8.RuneCountInString(s.texts[0]))
	})
}
