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
package main

/*
bio-pileup-merge reassembles the sharded outputs of a partitioned droplet
genotype-pileup run into one dataset with a global droplet-id space.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bio-pileup-merge/merge"
)

func bioPileupMergeUsage() {
	fmt.Printf("Usage: %s [OPTIONS] inprefix outprefix\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioPileupMergeUsage
	shutdown := grail.Init()
	defer shutdown()

	positionalArgs := flag.Args()
	if flag.NArg() != 2 {
		if flag.NArg() < 2 {
			log.Fatalf("Missing positional arguments (inprefix and outprefix required); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		} else {
			log.Fatalf("Too many positional arguments (only inprefix and outprefix expected); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		}
	}
	ctx := vcontext.Background()
	if err := merge.Merge(ctx, positionalArgs[0], positionalArgs[1]); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
