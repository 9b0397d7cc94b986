// Package introspection reflects live backend schemas for the catalog.
package introspection

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	goversion "github.com/hashicorp/go-version"

	"github.com/satishbabariya/querygate/internal/adapters/database"
	"github.com/satishbabariya/querygate/internal/core/introspection/domain"
	"github.com/satishbabariya/querygate/internal/core/introspection/duckdb"
	"github.com/satishbabariya/querygate/internal/core/introspection/mysql"
	"github.com/satishbabariya/querygate/internal/core/introspection/postgresql"
	"github.com/satishbabariya/querygate/internal/core/introspection/sqlite"
	qdomain "github.com/satishbabariya/querygate/internal/core/query/domain"
)

// ForDialect returns the introspector for a backend dialect.
func ForDialect(dialect database.SQLDialect) (domain.Introspector, error) {
	switch dialect {
	case database.SQLite:
		return sqlite.NewIntrospector(), nil
	case database.PostgreSQL:
		return postgresql.NewIntrospector(), nil
	case database.MySQL:
		return mysql.NewIntrospector(), nil
	case database.DuckDB:
		return duckdb.NewIntrospector(), nil
	default:
		return nil, fmt.Errorf("%w: %s", database.ErrUnsupportedProvider, dialect)
	}
}

// Reflector reads schema metadata through a scoped adapter connection.
type Reflector struct {
	adapter      database.Adapter
	introspector domain.Introspector
	extra        []string
}

// NewReflector creates a reflector. extraPrefixes extend the backend's own
// reserved prefixes.
func NewReflector(adapter database.Adapter, introspector domain.Introspector, extraPrefixes ...string) *Reflector {
	return &Reflector{
		adapter:      adapter,
		introspector: introspector,
		extra:        extraPrefixes,
	}
}

// ReflectSchema enumerates tables and columns on a connection that is
// released before returning.
func (r *Reflector) ReflectSchema(ctx context.Context) (*domain.IntrospectedDatabase, error) {
	conn, err := r.adapter.Conn(ctx)
	if err != nil {
		return nil, r.classify("reflect schema", err)
	}
	defer conn.Close()

	db, err := r.introspector.IntrospectDatabase(ctx, conn)
	if err != nil {
		return nil, r.classify("reflect schema", err)
	}
	return db, nil
}

// ReservedPrefixes returns the backend prefixes followed by configured ones.
func (r *Reflector) ReservedPrefixes() []string {
	base := r.introspector.ReservedPrefixes()
	out := make([]string, 0, len(base)+len(r.extra))
	out = append(out, base...)
	return append(out, r.extra...)
}

// Version returns the backend version string.
func (r *Reflector) Version(ctx context.Context) (string, error) {
	conn, err := r.adapter.Conn(ctx)
	if err != nil {
		return "", r.classify("version", err)
	}
	defer conn.Close()

	v, err := r.introspector.GetDatabaseVersion(ctx, conn)
	if err != nil {
		return "", r.classify("version", err)
	}
	return v, nil
}

// MinimumVersion is the oldest supported backend version.
func (r *Reflector) MinimumVersion() string {
	return r.introspector.MinimumVersion()
}

// CheckVersion logs a warning when the backend is older than the reflection
// queries require. It returns the reported version.
func (r *Reflector) CheckVersion(ctx context.Context, logger *slog.Logger) (string, error) {
	raw, err := r.Version(ctx)
	if err != nil {
		return "", err
	}
	ok, err := SatisfiesMinimum(raw, r.introspector.MinimumVersion())
	if err != nil {
		logger.Warn("could not parse backend version", "version", raw, "error", err)
		return raw, nil
	}
	if !ok {
		logger.Warn("backend version is older than supported",
			"version", raw, "minimum", r.introspector.MinimumVersion())
	}
	return raw, nil
}

func (r *Reflector) classify(op string, err error) error {
	if r.adapter.IsUnavailable(err) {
		return &qdomain.BackendUnavailableError{Operation: op, Cause: err}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

var leadingVersion = regexp.MustCompile(`\d+(\.\d+){0,2}`)

// SatisfiesMinimum reports whether the version embedded in raw is at least
// minimum. Backend banners such as "v1.1.3" or "16.1 (Debian 16.1-1)" are
// reduced to their first dotted number first.
func SatisfiesMinimum(raw, minimum string) (bool, error) {
	found := leadingVersion.FindString(raw)
	if found == "" {
		return false, fmt.Errorf("no version number in %q", raw)
	}
	current, err := goversion.NewVersion(found)
	if err != nil {
		return false, err
	}
	constraint, err := goversion.NewConstraint(">= " + minimum)
	if err != nil {
		return false, err
	}
	return constraint.Check(current), nil
}
