// Copyright 2026 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package merge

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// discoverShards returns all shard files matching <inPrefix>.*<suffix>,
// sorted lexicographically ascending.  The position of a path in the
// returned slice is its partition index, and every table kind of the same
// run must discover its shards in the same relative order for the
// partition indexes to line up.
func discoverShards(ctx context.Context, inPrefix, suffix string) ([]string, error) {
	pattern := basename(inPrefix) + ".*" + suffix
	lister := file.List(ctx, parentDir(inPrefix), false)
	var shards []string
	for lister.Scan() {
		if lister.IsDir() {
			continue
		}
		ok, err := path.Match(pattern, basename(lister.Path()))
		if err != nil {
			return nil, errors.E(err, "bad shard pattern "+pattern)
		}
		if ok {
			shards = append(shards, lister.Path())
		}
	}
	if err := lister.Err(); err != nil {
		return nil, errors.E(err, "listing shards for prefix "+inPrefix)
	}
	sort.Strings(shards)
	return shards, nil
}

// basename and parentDir split on the last '/' without cleaning the path,
// so that URL-style paths (e.g. s3://) survive intact.
func basename(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func parentDir(p string) string {
	switch i := strings.LastIndexByte(p, '/'); {
	case i > 0:
		return p[:i]
	case i == 0:
		return "/"
	default:
		return "."
	}
}
