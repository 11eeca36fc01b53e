// Command tablegen 基于段表的标识符分配服务。
//
//	tablegen serve --config ./config
//	tablegen next orders -n 10
//	tablegen schema create --exec
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
