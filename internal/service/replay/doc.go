// Package replay is the operator surface over the webhook event store:
// listing dead-lettered events, inspecting their payloads, and re-applying
// the projection for one event or for a bounded bulk run.
//
// Replay never deletes events. A successful replay moves the row to
// "replayed" and bumps replay_count; a failed replay re-marks it
// "dead_letter" with the new error and leaves replay_count unchanged. Bulk
// runs execute batches through a capped worker pool and pace themselves
// with an adaptive inter-batch sleep so a struggling downstream is not
// hammered.
package replay
