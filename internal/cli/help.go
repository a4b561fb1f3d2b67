package cli

const rootLong = `esextract reads documents from an Elasticsearch index and writes them out
as flat, typed rows.

Each hit's source is expanded into rows with the job's column tree: nested
objects add columns, arrays of objects multiply rows. Rows pass an optional
filter and are typed before reaching the sink (JSON lines, SQLite or
Postgres). Paging uses search_after, so the job's query needs a sort.

Connection settings come from the job file and can be overridden by ESX_*
environment variables or flags.

Examples:
  # Extract with the sink configured in the job file
  esextract run -j job.yaml

  # Verify the job file and that the index exists
  esextract check -j job.yaml --password "$PW"

  # Show the output columns a job produces
  esextract schema -j job.yaml -f json`
