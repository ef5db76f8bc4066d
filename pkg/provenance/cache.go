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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/numaproj/dayroll/pkg/storage"
)

// CachedCodec remembers provenance read from published outputs. A published
// output only changes when a publish replaces it, which must call Forget.
type CachedCodec struct {
	codec Codec
	cache *lru.Cache[string, Provenance]
}

// NewCachedCodec wraps codec with an LRU cache of the given size.
func NewCachedCodec(codec Codec, size int) (*CachedCodec, error) {
	cache, err := lru.New[string, Provenance](size)
	if err != nil {
		return nil, err
	}
	return &CachedCodec{codec: codec, cache: cache}, nil
}

func (c *CachedCodec) Read(ctx context.Context, store storage.Store, outputPath string) (*Provenance, error) {
	if p, ok := c.cache.Get(outputPath); ok {
		return &p, nil
	}
	p, err := c.codec.Read(ctx, store, outputPath)
	if err != nil {
		return nil, err
	}
	c.cache.Add(outputPath, *p)
	return p, nil
}

// Write does not populate the cache, outputs are written to staging paths.
func (c *CachedCodec) Write(ctx context.Context, store storage.Store, outputPath string, p *Provenance) error {
	return c.codec.Write(ctx, store, outputPath, p)
}

// Forget drops the cached entry for outputPath.
func (c *CachedCodec) Forget(outputPath string) {
	c.cache.Remove(outputPath)
}
