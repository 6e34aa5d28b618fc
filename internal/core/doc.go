// Package core provides the trip import pipeline and the report contracts.
//
// This package holds all domain logic independent of any store, CLI or HTTP
// layer. Stores implement [BulkInserter] and [Reporter]; the cmd binaries wire
// them to a [Service].
//
// # Pipeline
//
// [Service.Import] runs strictly in order:
//
//  1. Check the input path exists and is a readable file
//  2. Stream records with [Parser.Records], normalizing each row
//  3. Partition with [Deduplicate]: first record per [Key] wins
//  4. Write the duplicates to the overflow CSV (always overwritten)
//  5. [Stage] the unique records into destination columns
//  6. Hand the staged rows to the [BulkInserter] in one transaction
//
// A malformed required field stops the import at step 2 with a [*ParseError];
// nothing is written.
//
// # Time zones
//
// Source timestamps are wall-clock times in a configured IANA zone
// ([DefaultSourceZone] unless overridden). [Normalizer] converts them to UTC
// using the zone's daylight-saving rules for each date.
//
// # Error Handling
//
// Errors from Import wrap one of [ErrInput], [ErrParse], [ErrOverflow] or
// [ErrPersist]. [MapError] turns any of them into a [UserMessage] with a code
// for support reference.
package core
