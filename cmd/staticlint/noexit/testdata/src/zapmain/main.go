package main

import "go.uber.org/zap"

func main() {
	logger := zap.NewNop()
	logger.Error("recoverable")
	logger.Sugar().Infof("starting %d", 1)
	logger.Sugar().Fatalf("bad config %d", 1) // want `вызов \(\*go.uber.org/zap.SugaredLogger\).Fatalf в функции main запрещён`
	logger.Fatal("cannot start")              // want `вызов \(\*go.uber.org/zap.Logger\).Fatal в функции main запрещён`
}
