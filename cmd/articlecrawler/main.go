// Package main is the articlecrawler entrypoint. Subcommands crawl the
// configured blog, serve the read API, run the cron schedule, and query the
// article database. See `articlecrawler --help`.
package main

import "github.com/JakeFAU/article-crawler/cmd"

func main() {
	cmd.Execute()
}
