// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package distillery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/distillery/ai/mock"
	"github.com/poiesic/distillery/core"
	extractmock "github.com/poiesic/distillery/extract/mock"
	"github.com/poiesic/distillery/storage"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := NewLibrary("",
		WithInMemory(),
		WithExtractor(extractmock.NewMockExtractor()),
		WithDistiller(aimock.NewMockDistiller()),
		WithSpoolDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func waitTerminal(t *testing.T, lib *Library, id string) *core.Distillation {
	t.Helper()
	var d *core.Distillation
	require.Eventually(t, func() bool {
		var err error
		d, err = lib.Get(context.Background(), id)
		return err == nil && d.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return d
}

func TestLibraryEndToEnd(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()

	receipt, err := lib.SubmitText(ctx, "knowledge distilled from a long document")
	require.NoError(t, err)

	d := waitTerminal(t, lib, receipt.ID)
	require.Equal(t, core.StatusCompleted, d.Status)
	assert.NotEmpty(t, d.Content)

	all, err := lib.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	found, err := lib.Search(ctx, "knowledge")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, lib.Delete(ctx, receipt.ID))
	_, err = lib.Get(ctx, receipt.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLibraryPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	lib, err := NewLibrary(dir,
		WithExtractor(extractmock.NewMockExtractor()),
		WithDistiller(aimock.NewMockDistiller()),
		WithSpoolDir(t.TempDir()))
	require.NoError(t, err)

	receipt, err := lib.SubmitText(context.Background(), "this record must survive a restart")
	require.NoError(t, err)
	waitTerminal(t, lib, receipt.ID)
	require.NoError(t, lib.Close())

	reopened, err := NewLibrary(dir,
		WithExtractor(extractmock.NewMockExtractor()),
		WithDistiller(aimock.NewMockDistiller()))
	require.NoError(t, err)
	defer reopened.Close()

	d, err := reopened.Get(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, d.Status)
	assert.NotEmpty(t, d.Content)
}
