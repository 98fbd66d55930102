package domain

import "strings"

// Engine is the database engine a container runs.
type Engine int

const (
	EngineUnknown Engine = iota
	EngineMySQL
	EngineMariaDB
	EnginePostgres
	EngineInfluxDB
)

// EngineAuto is the label value that asks for image based detection.
const EngineAuto = "auto"

func (e Engine) String() string {
	switch e {
	case EngineMySQL:
		return "mysql"
	case EngineMariaDB:
		return "mariadb"
	case EnginePostgres:
		return "postgres"
	case EngineInfluxDB:
		return "influxdb"
	default:
		return "unknown"
	}
}

// DefaultPort is the port the engine listens on out of the box.
func (e Engine) DefaultPort() int {
	switch e {
	case EngineMySQL, EngineMariaDB:
		return 3306
	case EnginePostgres:
		return 5432
	case EngineInfluxDB:
		return 8086
	default:
		return 0
	}
}

// ParseEngine maps an explicit type label to an engine. It reports false
// for "auto" and for names it does not know.
func ParseEngine(s string) (Engine, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return EngineMySQL, true
	case "mariadb":
		return EngineMariaDB, true
	case "postgres", "postgresql":
		return EnginePostgres, true
	case "influxdb":
		return EngineInfluxDB, true
	default:
		return EngineUnknown, false
	}
}

// KnownImage maps an image repository to the engine it ships.
type KnownImage struct {
	Repository string
	Engine     Engine
}

// KnownImages is consulted in order; the first entry whose repository equals
// the normalized image reference wins. Matching is a best-effort heuristic:
// a renamed or mirrored image will not be recognised and needs a type label.
var KnownImages = []KnownImage{
	{"mysql", EngineMySQL},
	{"bitnami/mysql", EngineMySQL},
	{"mysql/mysql-server", EngineMySQL},
	{"mariadb", EngineMariaDB},
	{"bitnami/mariadb", EngineMariaDB},
	{"linuxserver/mariadb", EngineMariaDB},
	{"mariadb/server", EngineMariaDB},
	{"postgres", EnginePostgres},
	{"bitnami/postgresql", EnginePostgres},
	{"influxdb", EngineInfluxDB},
}

// ImageRepository strips the digest and tag from an image reference and
// drops the implicit Docker Hub prefixes, so "docker.io/library/mysql:8"
// becomes "mysql". A registry port ("host:5000/x") is left intact.
func ImageRepository(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, "@"); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.LastIndex(ref, ":"); i > strings.LastIndex(ref, "/") {
		ref = ref[:i]
	}
	ref = strings.TrimPrefix(ref, "docker.io/")
	ref = strings.TrimPrefix(ref, "index.docker.io/")
	ref = strings.TrimPrefix(ref, "library/")
	return ref
}

// MatchImage returns the engine for the first image reference found in
// KnownImages.
func MatchImage(refs []string) (Engine, bool) {
	for _, ref := range refs {
		repo := ImageRepository(ref)
		for _, known := range KnownImages {
			if known.Repository == repo {
				return known.Engine, true
			}
		}
	}
	return EngineUnknown, false
}
