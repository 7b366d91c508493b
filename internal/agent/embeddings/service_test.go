package embeddings

import (
	"context"
	"math"
	"testing"
)

type fakeProvider struct {
	calls int
	dims  int
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dims)
		for j, r := range text {
			vec[j%f.dims] += float32(r % 13)
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeProvider) Dimensions() int { return f.dims }
func (f *fakeProvider) Model() string   { return "fake" }

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"mismatched length", []float32{1, 2}, []float32{1}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0.0},
		{"empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlobRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	decoded, err := BlobToFloats(FloatsToBlob(vec))
	if err != nil {
		t.Fatalf("BlobToFloats() error = %v", err)
	}
	if len(decoded) != len(vec) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, decoded[i], vec[i])
		}
	}
}

func TestBlobToFloatsRejectsBadLength(t *testing.T) {
	if _, err := BlobToFloats([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for misaligned blob")
	}
}

func TestServiceNoProvider(t *testing.T) {
	svc := NewService(nil, nil)
	if svc.Available() {
		t.Error("Available() = true with no provider")
	}
	if _, err := svc.EmbedOne(context.Background(), "hello"); err != ErrNoProvider {
		t.Errorf("EmbedOne() error = %v, want ErrNoProvider", err)
	}
}

func TestServiceEmbed(t *testing.T) {
	fake := &fakeProvider{dims: 8}
	svc := NewService(nil, fake)

	vecs, err := svc.Embed(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("Embed() returned %d vectors, want 2", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Errorf("vector %d has %d dims, want 8", i, len(v))
		}
	}
	if fake.calls != 1 {
		t.Errorf("provider calls = %d, want 1", fake.calls)
	}
}
