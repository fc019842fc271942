package main

import (
	"github.com/lunixbochs/coremem/go/cmd"

	_ "github.com/lunixbochs/coremem/go/cmd/maps"
	_ "github.com/lunixbochs/coremem/go/cmd/probe"
	_ "github.com/lunixbochs/coremem/go/cmd/read"
	_ "github.com/lunixbochs/coremem/go/cmd/save"
)

func main() { cmd.Main() }
