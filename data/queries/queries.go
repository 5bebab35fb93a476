package queries

import (
	"embed"
	"fmt"
)

//go:embed create/*.sql insert/*.sql select/*.sql update/*.sql
var Files embed.FS

// ^^^ the go:embed directive is used to embed the files in the queries package
// meaning on compile time it will convert the files to binary data and embed it in the queries package

type CreateQueries struct {
	Tables string
}

type InsertQueries struct {
	Metadata string
}

type SelectQueries struct {
	MetaDataBySymbol            string
	MostRecentTimestampBySymbol string
	TimeSeriesPricesBetween     string
}

type UpdateQueries struct {
	LastRefreshedDate string
}

type QueryHelperStruct struct {
	Create CreateQueries
	Insert InsertQueries
	Select SelectQueries
	Update UpdateQueries
}

var QueryHelper = QueryHelperStruct{
	Create: CreateQueries{
		Tables: "create/tables.sql",
	},
	Insert: InsertQueries{
		Metadata: "insert/metadata.sql",
	},
	Select: SelectQueries{
		MetaDataBySymbol:            "select/meta_data_by_symbol.sql",
		MostRecentTimestampBySymbol: "select/most_recent_timestamp_by_symbol.sql",
		TimeSeriesPricesBetween:     "select/time_series_prices_between.sql",
	},
	Update: UpdateQueries{
		LastRefreshedDate: "update/last_refreshed_date.sql",
	},
}

func Get(path string) string {
	content, err := Files.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("error reading query file: %w", err))
	}

	return string(content)
}
