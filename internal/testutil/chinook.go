// Package testutil builds fixture databases for tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/stretchr/testify/require"
)

// chinookSchema is a subset of the Chinook music-store sample database with
// the same declared column types.
const chinookSchema = `
CREATE TABLE [Artist] (
	[ArtistId] INTEGER NOT NULL,
	[Name] NVARCHAR(120),
	CONSTRAINT [PK_Artist] PRIMARY KEY ([ArtistId])
);
CREATE TABLE [Album] (
	[AlbumId] INTEGER NOT NULL,
	[Title] NVARCHAR(160) NOT NULL,
	[ArtistId] INTEGER NOT NULL,
	CONSTRAINT [PK_Album] PRIMARY KEY ([AlbumId]),
	FOREIGN KEY ([ArtistId]) REFERENCES [Artist] ([ArtistId])
);
CREATE TABLE [Genre] (
	[GenreId] INTEGER NOT NULL,
	[Name] NVARCHAR(120),
	CONSTRAINT [PK_Genre] PRIMARY KEY ([GenreId])
);
CREATE TABLE [MediaType] (
	[MediaTypeId] INTEGER NOT NULL,
	[Name] NVARCHAR(120),
	CONSTRAINT [PK_MediaType] PRIMARY KEY ([MediaTypeId])
);
CREATE TABLE [Track] (
	[TrackId] INTEGER NOT NULL,
	[Name] NVARCHAR(200) NOT NULL,
	[AlbumId] INTEGER,
	[MediaTypeId] INTEGER NOT NULL,
	[GenreId] INTEGER,
	[Composer] NVARCHAR(220),
	[Milliseconds] INTEGER NOT NULL,
	[Bytes] INTEGER,
	[UnitPrice] NUMERIC(10,2) NOT NULL,
	CONSTRAINT [PK_Track] PRIMARY KEY ([TrackId])
);
CREATE TABLE [Customer] (
	[CustomerId] INTEGER NOT NULL,
	[FirstName] NVARCHAR(40) NOT NULL,
	[LastName] NVARCHAR(20) NOT NULL,
	[Company] NVARCHAR(80),
	[Email] NVARCHAR(60) NOT NULL,
	CONSTRAINT [PK_Customer] PRIMARY KEY ([CustomerId])
);
CREATE TABLE [Invoice] (
	[InvoiceId] INTEGER NOT NULL,
	[CustomerId] INTEGER NOT NULL,
	[InvoiceDate] DATETIME NOT NULL,
	[BillingCity] NVARCHAR(40),
	[Total] NUMERIC(10,2) NOT NULL,
	CONSTRAINT [PK_Invoice] PRIMARY KEY ([InvoiceId])
);
CREATE TABLE [Playlist] (
	[PlaylistId] INTEGER PRIMARY KEY AUTOINCREMENT,
	[Name] NVARCHAR(120)
);
`

const chinookRows = `
INSERT INTO [Artist] VALUES (1, 'AC/DC'), (2, 'Accept'), (3, 'Aerosmith');
INSERT INTO [Album] VALUES
	(1, 'For Those About To Rock We Salute You', 1),
	(2, 'Balls to the Wall', 2),
	(3, 'Restless and Wild', 2),
	(4, 'Let There Be Rock', 1),
	(5, 'Big Ones', 3);
INSERT INTO [Genre] VALUES (1, 'Rock'), (2, 'Jazz');
INSERT INTO [MediaType] VALUES (1, 'MPEG audio file'), (2, 'Protected AAC audio file');
INSERT INTO [Track] VALUES
	(1, 'For Those About To Rock (We Salute You)', 1, 1, 1, 'Angus Young, Malcolm Young, Brian Johnson', 343719, 11170334, 0.99),
	(2, 'Balls to the Wall', 2, 2, 1, NULL, 342562, 5510424, 0.99),
	(3, 'Fast As a Shark', 3, 2, 1, 'F. Baltes, S. Kaufman, U. Dirkscneider & W. Hoffman', 230619, 3990994, 0.99);
INSERT INTO [Customer] VALUES
	(1, 'Luís', 'Gonçalves', 'Embraer - Empresa Brasileira de Aeronáutica S.A.', 'luisg@embraer.com.br'),
	(2, 'Leonie', 'Köhler', NULL, 'leonekohler@surfeu.de');
INSERT INTO [Invoice] VALUES
	(1, 2, '2009-01-01 00:00:00', 'Stuttgart', 1.98),
	(2, 1, '2009-01-02 00:00:00', 'São José dos Campos', 3.96);
INSERT INTO [Playlist] ([Name]) VALUES ('Music');
`

// ChinookTables lists the visible tables of the fixture in lexicographic order.
var ChinookTables = []string{"Album", "Artist", "Customer", "Genre", "Invoice", "MediaType", "Playlist", "Track"}

// NewChinookDB writes the fixture to a temporary file and returns its path.
// The AUTOINCREMENT table makes SQLite create its internal sqlite_sequence table.
func NewChinookDB(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chinook.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(chinookSchema)
	require.NoError(t, err)
	_, err = db.Exec(chinookRows)
	require.NoError(t, err)

	return path
}
