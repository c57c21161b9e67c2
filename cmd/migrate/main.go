package main

import (
	"errors"
	"log"
	"os"

	"github.com/sandeepkv93/project-tracker-backend/internal/tools/common"
	tool "github.com/sandeepkv93/project-tracker-backend/internal/tools/migrate"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		if errors.Is(err, common.ErrActionFailed) {
			os.Exit(common.ExitCodeFailure)
		}
		log.Fatal(err)
	}
}
