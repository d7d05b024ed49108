// Package sessionsvc implements the session facade on top of the chunked log
// store. It serializes writers per session, fills record defaults, and adds
// CEL-filtered search, JSON Lines export and index repair for the HTTP and
// CLI transports.
//
// Example:
//
//	svc := sessionsvc.New(rt)
//	rec, _ := svc.Append(ctx, "run-1", synth.Record{Query: "q", Answer: "a"})
//	page, _ := svc.Page(ctx, "run-1", 1, 20)
//	hits, _ := svc.Search(ctx, "run-1", `json.modelUsed == "gemini"`, 10)
//	_, _ = svc.Export(ctx, "run-1", os.Stdout)
package sessionsvc
