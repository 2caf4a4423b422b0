/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var scriptOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SQLScript is a .sql file found by ListSQLScripts.
type SQLScript struct {
	Path  string
	Name  string
	Order int
}

// ListSQLScripts walks dir for .sql files ordered by their numeric "NNN_"
// prefix. Files without a prefix sort last, by name.
func ListSQLScripts(dir string) ([]SQLScript, error) {
	var scripts []SQLScript
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		scripts = append(scripts, SQLScript{
			Path:  path,
			Name:  d.Name(),
			Order: parseScriptOrder(d.Name()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list SQL scripts in %s: %w", dir, err)
	}

	sort.SliceStable(scripts, func(i, j int) bool {
		if scripts[i].Order != scripts[j].Order {
			return scripts[i].Order < scripts[j].Order
		}
		return scripts[i].Name < scripts[j].Name
	})
	return scripts, nil
}

func parseScriptOrder(filename string) int {
	matches := scriptOrderPattern.FindStringSubmatch(filename)
	if len(matches) > 1 {
		if order, err := strconv.Atoi(matches[1]); err == nil {
			return order
		}
	}
	return 999
}

// Statements reads the script and splits it with SplitSQLStatements.
func (s SQLScript) Statements() ([]string, error) {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return SplitSQLStatements(string(content)), nil
}

// SplitSQLStatements splits content on lines ending with ";". Blank lines and
// "--" comment lines are dropped, and a trailing statement without ";" is
// kept.
func SplitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
