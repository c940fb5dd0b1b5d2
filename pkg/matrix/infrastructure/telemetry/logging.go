package telemetry

import (
	"fmt"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"
)

func HandleLogError(logger applogger.Logger, packageName, interfaceName, funcName string, err error) {
	if err != nil {
		logger.Debug(fmt.Sprintf("%v.%v.%v decorator intercepted error: %v", packageName, interfaceName, funcName, err))
	}
}
