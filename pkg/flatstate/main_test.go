package flatstate

import (
	"io"
	"os"
	"testing"

	"github.com/tessera-chain/tessera/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}
