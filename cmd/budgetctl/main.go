// budgetctl inspects and exports stored transactions from the command line.
package main

import (
	"github.com/alecthomas/kong"
)

var commands struct {
	Ctx globals `embed:""`

	Categories categoriesCmd `cmd:"" help:"List the transaction categories."`
	Report     reportCmd     `cmd:"" help:"Print the summary and analytics of one owner."`
	Export     exportCmd     `cmd:"" help:"Write owners' transactions to a CSV directory, Elasticsearch or Google Sheets."`
	Keygen     keygenCmd     `cmd:"" help:"Generate SESSION_ENCRYPTION_KEY and SESSION_SIGNING_KEY values."`
}

func main() {
	ctx := kong.Parse(&commands)
	err := ctx.Run(&commands.Ctx)
	ctx.FatalIfErrorf(err)
}
