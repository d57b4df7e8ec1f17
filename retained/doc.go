/*
Package retained atomically stores a small fixed-size record in memory that
survives resets (power loss, watchdog resets, process crashes) but where a
reset can interrupt a write half-way.

The record is kept in two pages, A and B. Each page has its own sequence
number and checksum, stored in a Meta. At any time between commits exactly
one page has a valid checksum and holds the last committed record. The other
page is the scratchpad: the caller edits it freely and Commit promotes it.

	var pageA, pageB Settings // must survive resets
	var meta retained.Meta    // must survive resets

	s, err := retained.New(&pageA, &pageB, &meta, defaultSettings, nil)
	if err != nil {
		return err
	}
	s.Scratchpad().Volume = 7
	s.Commit()

A commit is performed in this order:

 1. write a checksum over the scratchpad (the edits are now durable)
 2. copy the scratchpad onto the saved page, sequence number + 1
 3. invalidate the saved page's checksum
 4. swap roles

A reset between 1 and 3 leaves both pages valid. On the next construction the
page with the newer sequence number wins (sequence numbers wrap from 65535 to
1, 0 is never used).

Construction never fails because of corrupted memory: if no page is valid,
the default record is used. Diagnostics go to an EventSink.

Each Meta must be owned by a single store. A second store on the same Meta
is rejected with ErrMetaInUse until the first one is closed.

The checksum defaults to ByteSum, a complemented byte sum. It catches random
bit decay, not transposition of bytes. See ChecksumPolicy for stronger
options.
*/
package retained
