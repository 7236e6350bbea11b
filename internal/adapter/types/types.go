/*
Copyright 2026.

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

package types

import (
	"fmt"
	"regexp"
	"strconv"
)

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Host            string
	Port            int32
	Database        string
	Username        string
	Password        string
	SSLMode         string
	ApplicationName string
	ConnectTimeout  int32
}

// CreateDatabaseOptions contains options for creating a database.
type CreateDatabaseOptions struct {
	Name  string
	Owner string
}

// EnsureRoleOptions contains options for idempotent role creation.
// Roles are created NOSUPERUSER NOCREATEDB NOCREATEROLE NOINHERIT NOLOGIN.
type EnsureRoleOptions struct {
	RoleName string
}

// EnsureUserOptions contains options for idempotent login-user creation.
// Users are created with LOGIN ENCRYPTED PASSWORD and no other privileges.
type EnsureUserOptions struct {
	Username string
	Password string
}

// ForeignServerOptions describes a postgres_fdw link from the connected
// database to a remote one.
type ForeignServerOptions struct {
	// ServerName is the foreign server identifier in the local database.
	ServerName string
	// RemoteURL is the remote database URL, scheme://host:port/dbname.
	RemoteURL string
	// RemoteUsername and RemotePassword authenticate the user mapping.
	RemoteUsername string
	RemotePassword string
	// LocalUsername is the role the user mapping is created for.
	LocalUsername string
	// LocalSchema is the schema the foreign tables are imported into.
	LocalSchema string
	// RemoteSchema is the schema imported from the remote database.
	RemoteSchema string
	// RemoteTables restricts the import (IMPORT FOREIGN SCHEMA ... LIMIT TO).
	// Empty means import everything in RemoteSchema.
	RemoteTables []string
}

// 0 = whole string, 1 = scheme, 2 = hostname, 3 = port, 4 = database
var urlPattern = regexp.MustCompile(`^([\w:]+)://([\w_.-]*):(\d+)/(\w+)$`)

// RemoteEndpoint is a parsed scheme://host:port/dbname URL.
type RemoteEndpoint struct {
	Host     string
	Port     int
	Database string
}

// ParseDatabaseURL parses a database URL of the exact shape
// scheme://host:port/dbname. Any other shape is an error; no remote
// call is ever attempted with a URL that does not match.
func ParseDatabaseURL(rawURL string) (RemoteEndpoint, error) {
	match := urlPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return RemoteEndpoint{}, fmt.Errorf("invalid database url: %s", rawURL)
	}
	port, err := strconv.Atoi(match[3])
	if err != nil {
		return RemoteEndpoint{}, fmt.Errorf("invalid port in database url %s: %w", rawURL, err)
	}
	return RemoteEndpoint{
		Host:     match[2],
		Port:     port,
		Database: match[4],
	}, nil
}

// AppendDatabase produces the URL for dbname on the same server as partial,
// where partial is scheme://host:port (no trailing database segment).
func AppendDatabase(partial, dbname string) string {
	for len(partial) > 0 && partial[len(partial)-1] == '/' {
		partial = partial[:len(partial)-1]
	}
	return partial + "/" + dbname
}
