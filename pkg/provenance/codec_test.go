/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package provenance

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/dayroll/pkg/calendar"
	storagefs "github.com/numaproj/dayroll/pkg/storage/fs"
	"github.com/numaproj/dayroll/pkg/window"
)

func testWindow() window.DateWindow {
	return window.MustNew(calendar.MustParseISO("2024-01-01"), calendar.MustParseISO("2024-01-08"))
}

func TestCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storagefs.NewStore(afero.NewMemMapFs())
	codec := NewCodec()

	p := &Provenance{
		Window:    testWindow(),
		JobID:     "job-1",
		CreatedAt: time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		NewInputs: 8,
	}
	require.NoError(t, codec.Write(ctx, store, "/out/20240108", p))
	assert.Equal(t, FormatVersion, p.FormatVersion)

	raw, err := store.ReadFile(ctx, "/out/20240108/_provenance.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"begin": "2024-01-01"`)

	got, err := codec.Read(ctx, store, "/out/20240108")
	require.NoError(t, err)
	assert.Equal(t, testWindow(), got.Window)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, 8, got.NewInputs)
}

func TestCodec_ReadErrors(t *testing.T) {
	ctx := context.Background()
	store := storagefs.NewStore(afero.NewMemMapFs())
	codec := NewCodec()

	_, err := codec.Read(ctx, store, "/out/missing")
	assert.Error(t, err)

	require.NoError(t, store.WriteFile(ctx, "/out/a/_provenance.json", []byte("{not json")))
	_, err = codec.Read(ctx, store, "/out/a")
	assert.Error(t, err)

	require.NoError(t, store.WriteFile(ctx, "/out/b/_provenance.json",
		[]byte(`{"formatVersion":"2.0.0","window":{"begin":"2024-01-01","end":"2024-01-02"}}`)))
	_, err = codec.Read(ctx, store, "/out/b")
	assert.ErrorContains(t, err, "constraint")

	require.NoError(t, store.WriteFile(ctx, "/out/c/_provenance.json",
		[]byte(`{"formatVersion":"1.2.0","window":{"begin":"2024-01-05","end":"2024-01-02"}}`)))
	_, err = codec.Read(ctx, store, "/out/c")
	assert.ErrorContains(t, err, "invalid window")

	require.NoError(t, store.WriteFile(ctx, "/out/d/_provenance.json",
		[]byte(`{"formatVersion":"1.2.0","window":{"begin":"2024-01-01","end":"2024-01-02"}}`)))
	p, err := codec.Read(ctx, store, "/out/d")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Window.Len())
}

func TestCachedCodec(t *testing.T) {
	ctx := context.Background()
	store := storagefs.NewStore(afero.NewMemMapFs())
	cached, err := NewCachedCodec(NewCodec(), 4)
	require.NoError(t, err)

	require.NoError(t, cached.Write(ctx, store, "/out/20240108", &Provenance{Window: testWindow()}))
	p, err := cached.Read(ctx, store, "/out/20240108")
	require.NoError(t, err)
	assert.Equal(t, testWindow(), p.Window)

	// served from cache after the file is gone
	require.NoError(t, store.Delete(ctx, "/out/20240108"))
	p, err = cached.Read(ctx, store, "/out/20240108")
	require.NoError(t, err)
	assert.Equal(t, testWindow(), p.Window)

	cached.Forget("/out/20240108")
	_, err = cached.Read(ctx, store, "/out/20240108")
	assert.Error(t, err)
}
