package merge

import (
	"io"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// writeShard writes a gzip-compressed table fixture, one line per entry.
func writeShard(t *testing.T, path string, lines ...string) {
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	for _, line := range lines {
		_, err = gz.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

// readGz decompresses a merged output for content checks.
func readGz(t *testing.T, path string) string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	b, err := io.ReadAll(gz)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return string(b)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

const testDropletHeader = "#DROPLET_ID\tBARCODE\tNUM.READ\tNUM.UMI\tNUM.UMIwSNP\tNUM.SNP"

// writeDropletFixtures writes the three-shard droplet scenario used
// throughout these tests: shards of 2, 3, and 1 rows, so the merged
// table has global ids 0..5 with rows 0-1 from partition 0, 2-4 from
// partition 1, and 5 from partition 2.
func writeDropletFixtures(t *testing.T, inPrefix string) {
	writeShard(t, inPrefix+".0"+DropletSuffix,
		testDropletHeader,
		"0\tAAACCCAAGAAACACT\t100\t50\t20\t10",
		"1\tAAACCCAAGAAACCAT\t80\t40\t15\t8",
	)
	writeShard(t, inPrefix+".1"+DropletSuffix,
		testDropletHeader,
		"0\tCCCAACTAGTCATGCA\t60\t30\t12\t6",
		"1\tCCCAACTAGTCCGTAC\t50\t25\t10\t5",
		"2\tCCCAACTAGTCGAATG\t40\t20\t8\t4",
	)
	writeShard(t, inPrefix+".2"+DropletSuffix,
		testDropletHeader,
		"0\tGGGACCTTTACAGCTA\t30\t15\t6\t3",
	)
}
