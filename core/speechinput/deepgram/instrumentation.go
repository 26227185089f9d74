package deepgram

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/duplex-core/core/speechinput/deepgram"

var logger = otelslog.NewLogger(scopeName)
