package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitLoggerTagsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	defer func() { log.Logger = prev }()
	log.Logger = zerolog.New(&buf)

	logger := InitLogger("station-a")
	logger.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"app":"station-a"`) {
		t.Fatalf("returned logger missing app tag: %s", buf.String())
	}

	buf.Reset()
	log.Info().Msg("global")
	if !strings.Contains(buf.String(), `"app":"station-a"`) {
		t.Fatalf("global logger not replaced: %s", buf.String())
	}
}
