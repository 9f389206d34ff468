// Package batch groups discrete messages into fixed-count batches.
//
// Producers hand messages to a [FixedCountBatcher] with Enqueue, which never
// blocks: the backlog is an unbounded FIFO. A single consumer pulls batches of
// exactly the configured size with Next (or ranges over Drain). After Close,
// the trailing remainder comes out as one short batch and the batcher then
// reports domain.ErrDrained.
//
// [Consumer] implements the publish side: every batch is concatenated in
// order and published as one payload.
//
//	b := batch.New(10)
//	c := batch.NewConsumer(b, publisher, logger)
//
//	go func() {
//	    for _, m := range messages {
//	        _ = b.Enqueue(m)
//	    }
//	    b.Close()
//	}()
//
//	if err := c.Run(ctx); err != nil {
//	    // err is a *domain.PublishError carrying the lost batch
//	}
package batch
