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
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/stretchr/testify/require"
)

const testVariantHeader = "#SNP_ID\tCHROM\tPOS\tREF\tALT\tAF"

var testVariantRows = []string{
	"0\tchr1\t100\tA\tG\t0.25",
	"1\tchr1\t250\tC\tT\t0.10",
	"2\tchr2\t300\tG\tA\t0.05",
	"3\tchr2\t410\tT\tC\t0.33",
	"4\tchr3\t520\tA\tC\t0.50",
}

func TestPrefixConsistencyReconcile(t *testing.T) {
	rows := []VariantRow{
		{SNPID: 0, Chrom: "chr1", Pos: 100, Ref: "A", Alt: "G", AlleleFreq: "0.25"},
		{SNPID: 1, Chrom: "chr1", Pos: 250, Ref: "C", Alt: "T", AlleleFreq: "0.10"},
		{SNPID: 2, Chrom: "chr2", Pos: 300, Ref: "G", Alt: "A", AlleleFreq: "0.05"},
		{SNPID: 3, Chrom: "chr2", Pos: 410, Ref: "T", Alt: "C", AlleleFreq: "0.33"},
		{SNPID: 4, Chrom: "chr3", Pos: 520, Ref: "A", Alt: "C", AlleleFreq: "0.50"},
	}
	shardA := VariantShard{Path: "a", Rows: rows[:3]}
	shardB := VariantShard{Path: "b", Rows: rows}

	// The larger shard wins when the boundary rows agree.
	winner, err := PrefixConsistency{}.Reconcile([]VariantShard{shardA, shardB})
	assert.NoError(t, err)
	assert.EQ(t, winner, 1)

	// Order independence: a smaller shard never displaces a larger one.
	winner, err = PrefixConsistency{}.Reconcile([]VariantShard{shardB, shardA})
	assert.NoError(t, err)
	assert.EQ(t, winner, 0)

	// Equal sizes keep the first shard, without a boundary check.
	winner, err = PrefixConsistency{}.Reconcile([]VariantShard{shardA, shardA})
	assert.NoError(t, err)
	assert.EQ(t, winner, 0)

	// Boundary mismatch is an integrity failure.
	badRows := append([]VariantRow{}, rows...)
	badRows[2].Pos = 301
	shardBad := VariantShard{Path: "bad", Rows: badRows}
	_, err = PrefixConsistency{}.Reconcile([]VariantShard{shardA, shardBad})
	require.Error(t, err)
	assert.HasSubstr(t, err.Error(), "not nested supersets")
}

func TestReconcileVariants(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()
	inPrefix := filepath.Join(tmpdir, "part")
	outPrefix := filepath.Join(tmpdir, "full")
	writeShard(t, inPrefix+".0"+VariantSuffix,
		append([]string{testVariantHeader}, testVariantRows[:3]...)...)
	writeShard(t, inPrefix+".1"+VariantSuffix,
		append([]string{testVariantHeader}, testVariantRows...)...)

	require.NoError(t, ReconcileVariants(ctx, inPrefix, outPrefix, nil))
	// The winner is copied verbatim: output bytes match the shard file
	// exactly, compression included.
	wantRaw, err := os.ReadFile(inPrefix + ".1" + VariantSuffix)
	require.NoError(t, err)
	gotRaw, err := os.ReadFile(outPrefix + VariantSuffix)
	require.NoError(t, err)
	assert.EQ(t, gotRaw, wantRaw)
}

func TestReconcileVariantsMismatch(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()
	inPrefix := filepath.Join(tmpdir, "part")
	outPrefix := filepath.Join(tmpdir, "full")
	writeShard(t, inPrefix+".0"+VariantSuffix,
		testVariantHeader, testVariantRows[0], testVariantRows[1], testVariantRows[2])
	writeShard(t, inPrefix+".1"+VariantSuffix,
		testVariantHeader, testVariantRows[0], testVariantRows[1],
		"2\tchr2\t999\tG\tA\t0.05", testVariantRows[3], testVariantRows[4])

	err := ReconcileVariants(ctx, inPrefix, outPrefix, nil)
	require.Error(t, err)
	assert.HasSubstr(t, err.Error(), "not nested supersets")
	assert.EQ(t, fileExists(outPrefix+VariantSuffix), false)
}

func TestReconcileVariantsNoShards(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()
	outPrefix := filepath.Join(tmpdir, "full")

	assert.NoError(t, ReconcileVariants(ctx, filepath.Join(tmpdir, "part"), outPrefix, nil))
	assert.EQ(t, fileExists(outPrefix+VariantSuffix), false)
}

func TestReconcileVariantsRefusesExistingDestination(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()
	inPrefix := filepath.Join(tmpdir, "part")
	outPrefix := filepath.Join(tmpdir, "full")
	writeShard(t, inPrefix+".0"+VariantSuffix, testVariantHeader, testVariantRows[0])
	dest := outPrefix + VariantSuffix
	require.NoError(t, os.WriteFile(dest, []byte("sentinel"), 0644))

	err := ReconcileVariants(ctx, inPrefix, outPrefix, nil)
	require.Error(t, err)
	assert.HasSubstr(t, err.Error(), "already exists")
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.EQ(t, string(b), "sentinel")
}
