package usecases

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leadbot/internal/entities"
	"leadbot/internal/interfaces"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"empty", "", 800, nil},
		{"blank paragraphs skipped", "a\n\n\n\n  \n\nb", 800, []string{"a b"}},
		{"packs until limit", "aaaa\n\nbbbb\n\ncccc", 8, []string{"aaaa bbbb", "cccc"}},
		{"oversized paragraph stands alone", "aaaaaaaaaa\n\nbb", 5, []string{"aaaaaaaaaa", "bb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkText(tt.text, tt.max))
		})
	}
}

func onboardingFixture(t *testing.T, kb string) (*Onboarder, *mockEmbedder, *mockIndex) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kb"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kb", "acme.txt"), []byte(kb), 0o644))

	cfg := entities.DefaultTenantConfig("acme")
	cfg.KBRefs = []string{"kb/acme.txt"}

	emb := new(mockEmbedder)
	idx := new(mockIndex)
	o := NewOnboarder(staticTenantStore{"acme": cfg}, emb, idx, dir)
	return o, emb, idx
}

func TestOnboardBatchesUpserts(t *testing.T) {
	paras := make([]string, 257)
	for i := range paras {
		paras[i] = strings.Repeat("x", 500)
	}
	o, emb, idx := onboardingFixture(t, strings.Join(paras, "\n\n"))

	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2, 0.3}, nil)
	idx.On("RecreateCollection", mock.Anything, "acme_kb", 3).Return(nil).Once()

	var sizes []int
	idx.On("Upsert", mock.Anything, "acme_kb", mock.Anything).
		Run(func(args mock.Arguments) {
			pts := args.Get(2).([]interfaces.VectorPoint)
			sizes = append(sizes, len(pts))
			assert.NotEmpty(t, pts[0].ID)
			assert.Equal(t, strings.Repeat("x", 500), pts[0].Payload["text"])
		}).
		Return(nil)

	n, err := o.Onboard(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 257, n)
	assert.Equal(t, []int{256, 1}, sizes)
	idx.AssertExpectations(t)
}

func TestOnboardBatchesDoNotShareStorage(t *testing.T) {
	paras := make([]string, 257)
	for i := range paras {
		paras[i] = strings.Repeat("y", 500)
	}
	o, emb, idx := onboardingFixture(t, strings.Join(paras, "\n\n"))

	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	idx.On("RecreateCollection", mock.Anything, "acme_kb", 1).Return(nil)

	var kept [][]interfaces.VectorPoint
	idx.On("Upsert", mock.Anything, "acme_kb", mock.Anything).
		Run(func(args mock.Arguments) {
			kept = append(kept, args.Get(2).([]interfaces.VectorPoint))
		}).
		Return(nil)

	_, err := o.Onboard(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, kept, 2)
	require.Len(t, kept[0], 256)
	for _, p := range kept[0] {
		assert.NotEqual(t, kept[1][0].ID, p.ID)
	}
}

func TestOnboardNoDocuments(t *testing.T) {
	o, _, idx := onboardingFixture(t, "\n\n   \n\n")

	_, err := o.Onboard(context.Background(), "acme")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDocuments))
	assert.Contains(t, err.Error(), "no documents to index")
	idx.AssertNotCalled(t, "RecreateCollection", mock.Anything, mock.Anything, mock.Anything)
}

func TestOnboardMissingFile(t *testing.T) {
	cfg := entities.DefaultTenantConfig("acme")
	cfg.KBRefs = []string{"missing.txt"}
	o := NewOnboarder(staticTenantStore{"acme": cfg}, new(mockEmbedder), new(mockIndex), t.TempDir())

	_, err := o.Onboard(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read missing.txt")
}

func TestOnboardEmbedFailure(t *testing.T) {
	o, emb, idx := onboardingFixture(t, "hello")
	emb.On("Embed", mock.Anything, "hello").Return(nil, errors.New("model offline"))

	_, err := o.Onboard(context.Background(), "acme")
	require.Error(t, err)
	idx.AssertNotCalled(t, "RecreateCollection", mock.Anything, mock.Anything, mock.Anything)
}
