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

// Package merge reassembles the four output tables of a partitioned
// droplet genotype-pileup run.  The upstream tool is run N times against
// the same variant set but disjoint cell-barcode subsets; each run writes
// a droplet (CEL), SNP-observation (PLP), UMI, and variant (VAR) table
// keyed by a partition-local droplet id.  Merge stitches the N partial
// outputs into one dataset with a single global droplet-id space.
package merge

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// ExistingDestinations returns the merge output paths under outPrefix
// that already exist, in table-kind order.
func ExistingDestinations(ctx context.Context, outPrefix string) []string {
	var existing []string
	for _, suffix := range []string{DropletSuffix, SNPObsSuffix, UMISuffix, VariantSuffix} {
		if path := outPrefix + suffix; destinationExists(ctx, path) {
			existing = append(existing, path)
		}
	}
	return existing
}

// Merge runs the four table merges in their fixed order: droplet tables
// first (producing the correction table), then SNP observations (which
// consume it), then the UMI and variant tables.  Before any work begins,
// every destination derived from outPrefix is checked; if any exists, all
// offending paths are reported and nothing is merged.
//
// A droplet-table failure aborts the run, since the downstream join needs
// its result.  If another step's destination appears mid-run, that step
// is skipped with a diagnostic and Merge returns an error once the
// remaining steps have run.  Any parse or consistency failure aborts
// immediately.
func Merge(ctx context.Context, inPrefix, outPrefix string) error {
	if existing := ExistingDestinations(ctx, outPrefix); len(existing) > 0 {
		for _, path := range existing {
			log.Error.Printf("destination file %s already exists", path)
		}
		return errors.E(errors.Exists, fmt.Sprintf("refusing to overwrite %d existing merge output(s) under %s", len(existing), outPrefix))
	}

	droplets, err := MergeDroplets(ctx, inPrefix, outPrefix)
	if err != nil {
		return err
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"PLP", func() error { return MergeSNPObservations(ctx, droplets, inPrefix, outPrefix) }},
		{"UMI", func() error { return MergeUMIs(ctx, inPrefix, outPrefix) }},
		{"VAR", func() error { return ReconcileVariants(ctx, inPrefix, outPrefix, nil) }},
	}
	var nSkipped int
	for _, step := range steps {
		if err := step.run(); err != nil {
			if !errors.Is(errors.Exists, err) {
				return err
			}
			log.Error.Printf("%v; skipping %s merge", err, step.name)
			nSkipped++
		}
	}
	if nSkipped > 0 {
		return errors.E(errors.Exists, fmt.Sprintf("%d merge output(s) already existed; their merges were skipped", nSkipped))
	}
	return nil
}
