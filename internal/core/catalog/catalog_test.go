package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/querygate/internal/core/catalog"
	idomain "github.com/satishbabariya/querygate/internal/core/introspection/domain"
	"github.com/satishbabariya/querygate/internal/core/query/domain"
)

type fakeSource struct {
	mu       sync.Mutex
	db       *idomain.IntrospectedDatabase
	err      error
	calls    atomic.Int32
	prefixes []string
}

func (f *fakeSource) ReflectSchema(ctx context.Context) (*idomain.IntrospectedDatabase, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.db, f.err
}

func (f *fakeSource) ReservedPrefixes() []string { return f.prefixes }

func (f *fakeSource) set(db *idomain.IntrospectedDatabase, err error) {
	f.mu.Lock()
	f.db, f.err = db, err
	f.mu.Unlock()
}

func table(name string, cols ...string) idomain.IntrospectedTable {
	t := idomain.IntrospectedTable{Name: name}
	for i, c := range cols {
		t.Columns = append(t.Columns, idomain.IntrospectedColumn{Name: c, Type: "INTEGER", OrdinalPosition: i + 1})
	}
	return t
}

func musicStore() *idomain.IntrospectedDatabase {
	return &idomain.IntrospectedDatabase{Tables: []idomain.IntrospectedTable{
		table("Track", "TrackId", "Name"),
		table("sqlite_sequence", "name", "seq"),
		table("Album", "AlbumId", "Title", "ArtistId"),
		table("Artist", "ArtistId", "Name"),
		table("SQLITE_stat1", "tbl"),
	}}
}

func TestListTablesSortedAndFiltered(t *testing.T) {
	src := &fakeSource{db: musicStore(), prefixes: []string{"sqlite_"}}
	c := catalog.New(src)

	tables, err := c.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Album", "Artist", "Track"}, tables)
}

func TestDescribe(t *testing.T) {
	src := &fakeSource{db: musicStore(), prefixes: []string{"sqlite_"}}
	c := catalog.New(src)
	ctx := context.Background()

	t.Run("declared order", func(t *testing.T) {
		cols, err := c.Describe(ctx, "Album")
		require.NoError(t, err)
		require.Len(t, cols, 3)
		assert.Equal(t, "AlbumId", cols[0].Name)
		assert.Equal(t, "Title", cols[1].Name)
		assert.Equal(t, "ArtistId", cols[2].Name)
	})

	t.Run("case sensitive", func(t *testing.T) {
		_, err := c.Describe(ctx, "album")
		var unknown *domain.UnknownTableError
		require.ErrorAs(t, err, &unknown)
		assert.False(t, unknown.Reserved)
		assert.Equal(t, "album", unknown.Table)
	})

	t.Run("reserved table", func(t *testing.T) {
		_, err := c.Describe(ctx, "sqlite_sequence")
		var unknown *domain.UnknownTableError
		require.ErrorAs(t, err, &unknown)
		assert.True(t, unknown.Reserved)
		assert.ErrorIs(t, err, domain.ErrUnknownTable)
	})

	t.Run("reserved prefix ignores case", func(t *testing.T) {
		_, err := c.Describe(ctx, "SQLITE_stat1")
		assert.ErrorIs(t, err, domain.ErrUnknownTable)
	})

	t.Run("copy is returned", func(t *testing.T) {
		cols, err := c.Describe(ctx, "Artist")
		require.NoError(t, err)
		cols[0].Name = "mutated"

		again, err := c.Describe(ctx, "Artist")
		require.NoError(t, err)
		assert.Equal(t, "ArtistId", again[0].Name)
	})
}

func TestLazyBuildOnce(t *testing.T) {
	src := &fakeSource{db: musicStore()}
	c := catalog.New(src)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ListTables(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	assert.False(t, c.BuiltAt().IsZero())
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	src := &fakeSource{db: musicStore()}
	c := catalog.New(src)
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))

	boom := errors.New("disk I/O error")
	src.set(nil, boom)
	assert.ErrorIs(t, c.Refresh(ctx), boom)

	tables, err := c.ListTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "Album")
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	src := &fakeSource{db: musicStore()}
	var refreshed []int
	c := catalog.New(src, catalog.OnRefresh(func(tables int, _ time.Duration) {
		refreshed = append(refreshed, tables)
	}))
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx))

	src.set(&idomain.IntrospectedDatabase{Tables: []idomain.IntrospectedTable{
		table("Album", "AlbumId", "Title", "ArtistId"),
		table("Genre", "GenreId", "Name"),
	}}, nil)
	require.NoError(t, c.Refresh(ctx))

	tables, err := c.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Album", "Genre"}, tables)

	_, err = c.Describe(ctx, "Track")
	assert.ErrorIs(t, err, domain.ErrUnknownTable)
	assert.Equal(t, []int{5, 2}, refreshed)
}

// Readers running alongside refreshes must only ever observe one of the two
// complete snapshots.
func TestConcurrentRefreshAndRead(t *testing.T) {
	small := &idomain.IntrospectedDatabase{Tables: []idomain.IntrospectedTable{table("A", "x")}}
	large := &idomain.IntrospectedDatabase{}
	for i := 0; i < 50; i++ {
		large.Tables = append(large.Tables, table(fmt.Sprintf("T%02d", i), "x"))
	}

	src := &fakeSource{db: small}
	c := catalog.New(src)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				tables, err := c.ListTables(ctx)
				if !assert.NoError(t, err) {
					return
				}
				n := len(tables)
				assert.True(t, n == 1 || n == 50, "partial snapshot with %d tables", n)
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			src.set(large, nil)
		} else {
			src.set(small, nil)
		}
		require.NoError(t, c.Refresh(ctx))
	}
	close(stop)
	wg.Wait()
}
