// Package boqmatch provides a Go client for the boqmatch HTTP API: submit
// bill-of-quantities line items for catalog matching, track jobs and
// batches, and export results.
//
//	client := boqmatch.New("http://localhost:8080")
//
//	jobID, _ := client.SubmitJob(ctx, boqmatch.SubmitJobRequest{
//	    FileName: "boq.xlsx",
//	    Items:    []string{"450mm brick wall", "excavation of trench"},
//	    Model:    boqmatch.ModelHybrid,
//	})
//	job, _ := client.WaitForJob(ctx, jobID)
//
//	batchID, _ := client.StartBatch(ctx, boqmatch.StartBatchRequest{
//	    Files: []boqmatch.FileInput{{Name: "boq.xlsx", Items: items}},
//	    Model: boqmatch.ModelOpenAI,
//	})
//	csv, _ := client.ExportBatch(ctx, batchID, boqmatch.FormatCSV)
package boqmatch
