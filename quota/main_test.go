package quota

import (
	"os"
	"testing"

	"github.com/ridhan354/xlreminder/core/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitLogger(nil); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
