/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"invitestudio/internal/crop"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestProbe(t *testing.T) {
	w, h, format, err := Probe(pngBytes(t, 64, 48))
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}
	if w != 64 || h != 48 || format != "png" {
		t.Fatalf("Probe = %dx%d %q", w, h, format)
	}
	if _, _, _, err := Probe([]byte("not an image")); err == nil {
		t.Fatalf("Probe must fail on garbage input")
	}
}

func TestDecodeReturnsDataURI(t *testing.T) {
	p := New()
	ref, w, h, err := p.Decode(context.Background(), pngBytes(t, 32, 16))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if w != 32 || h != 16 {
		t.Fatalf("dimensions = %dx%d", w, h)
	}
	if !strings.HasPrefix(ref, "data:image/png;base64,") {
		t.Fatalf("ref is not a PNG data URI: %.40q", ref)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("base64 decode: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("embedded png invalid: %v", err)
	}
}

func TestRenderCropOutputSize(t *testing.T) {
	p := New()
	src := pngBytes(t, 1000, 1000)
	box := crop.ComputeWithWidth(1000, 1000, crop.AspectSquare, 150, 200)
	ref, err := p.RenderCrop(context.Background(), src, box)
	if err != nil {
		t.Fatalf("RenderCrop error: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, "data:image/png;base64,"))
	out, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 200 {
		t.Fatalf("output size = %v, want 200x200", out.Bounds())
	}
}

func TestRenderCropCancelledContext(t *testing.T) {
	p := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.RenderCrop(ctx, pngBytes(t, 10, 10), crop.Compute(10, 10, crop.AspectFree, 100)); err == nil {
		t.Fatalf("cancelled context must abort the render")
	}
}
