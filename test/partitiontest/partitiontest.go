// Copyright (C) 2022-2023 Algorand, Inc.
// This file is part of beaker-go
//
// beaker-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// beaker-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with beaker-go.  If not, see <https://www.gnu.org/licenses/>.

// Package partitiontest supports the `PARTITION_TOTAL` and `PARTITION_ID`
// environment variables that CI uses to split the test suite across
// executors.
package partitiontest

import (
	"hash/fnv"
	"os"
	"strconv"
	"testing"
)

// PartitionTest checks if the current partition should run this test, and
// skips it otherwise. Tests are assigned to partitions by hashing their
// names.
func PartitionTest(t *testing.T) {
	partitions, err := strconv.Atoi(os.Getenv("PARTITION_TOTAL"))
	if err != nil || partitions <= 1 {
		return
	}
	partitionID, err := strconv.Atoi(os.Getenv("PARTITION_ID"))
	if err != nil {
		return
	}

	name := t.Name()
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	if int(h.Sum32())%partitions != partitionID {
		t.Skipf("skipping %s due to partitioning: assigned to partition %d of %d", name, int(h.Sum32())%partitions, partitions)
	}
}
