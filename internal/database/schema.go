package database

const sqliteSchema = `
CREATE TABLE movies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	movie_name TEXT NOT NULL,
	release_year INTEGER NOT NULL DEFAULT 0,
	runtime INTEGER,
	poster_link TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX idx_movies_natural_key ON movies(movie_name COLLATE NOCASE, release_year);

CREATE TABLE movie_genres (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	movie_id INTEGER NOT NULL,
	genre_name TEXT NOT NULL,
	FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE
);

CREATE INDEX idx_movie_genres_movie_id ON movie_genres(movie_id);

CREATE TABLE movie_providers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	movie_id INTEGER NOT NULL,
	provider_name TEXT NOT NULL,
	FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE
);

CREATE INDEX idx_movie_providers_movie_id ON movie_providers(movie_id);
`

const postgresSchema = `
CREATE TABLE movies (
	id BIGSERIAL PRIMARY KEY,
	movie_name TEXT NOT NULL,
	release_year INTEGER NOT NULL DEFAULT 0,
	runtime INTEGER,
	poster_link TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX idx_movies_natural_key ON movies(LOWER(movie_name), release_year);

CREATE TABLE movie_genres (
	id BIGSERIAL PRIMARY KEY,
	movie_id BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
	genre_name TEXT NOT NULL
);

CREATE INDEX idx_movie_genres_movie_id ON movie_genres(movie_id);

CREATE TABLE movie_providers (
	id BIGSERIAL PRIMARY KEY,
	movie_id BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
	provider_name TEXT NOT NULL
);

CREATE INDEX idx_movie_providers_movie_id ON movie_providers(movie_id);
`

// sqliteMigrations contains incremental schema changes
// Each migration is applied in order based on the current user_version
// sqliteMigrations[0] is empty because version 0 uses the base schema
var sqliteMigrations = []string{
	"",
}

// postgresMigrations mirrors sqliteMigrations, versioned through schema_migrations
var postgresMigrations = []string{
	"",
}
