package repository

// Queries use "?" placeholders and are rebound for the active driver.
const (
	jobColumns = `id, external_id, source_url, youtube_id, title, channel_title, published_at, duration_sec,
		status, step, percent, message,
		source_audio_key, normalized_audio_key, transcript_json_key, transcript_vtt_key,
		language, segment_count, attempts, claim_id, claimed_at, claim_expires_at, created_at, updated_at`

	createJobQuery = `INSERT INTO jobs (external_id, source_url, status, step, percent, message, created_at, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	getJobByExternalIDQuery = `SELECT ` + jobColumns + ` FROM jobs WHERE external_id = ?`
	getJobByClaimIDQuery    = `SELECT ` + jobColumns + ` FROM jobs WHERE claim_id = ?`

	// %s is the row-lock clause of the driver, empty on SQLite where writers are already serialized.
	claimNextJobQuery = `UPDATE jobs
					SET status = ?, step = ?, message = ?, claim_id = ?, claimed_at = ?, claim_expires_at = ?, updated_at = ?
					WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1 %s)
					  AND status = ?`
	releaseClaimQuery = `UPDATE jobs
					SET status = ?, step = ?, message = ?, claim_id = NULL, claimed_at = NULL, claim_expires_at = NULL, updated_at = ?
					WHERE external_id = ? AND claim_id = ? AND status = ?`
	reclaimExpiredQuery = `UPDATE jobs
					SET status = ?, step = ?, message = ?, claim_id = NULL, claimed_at = NULL, claim_expires_at = NULL, updated_at = ?
					WHERE status = ? AND claim_expires_at IS NOT NULL AND claim_expires_at < ?`
	// %s is the IN list of statuses the job may be requeued from.
	requeueJobQuery = `UPDATE jobs
					SET status = ?, step = ?, percent = 0, message = ?,
					    source_audio_key = '', normalized_audio_key = '', transcript_json_key = '', transcript_vtt_key = '',
					    language = '', segment_count = NULL,
					    claim_id = NULL, claimed_at = NULL, claim_expires_at = NULL,
					    attempts = attempts + ?, updated_at = ?
					WHERE external_id = ? AND status IN (%s)`

	getTotalJobsQuery = `SELECT COUNT(id) FROM jobs WHERE (? = '' OR status = ?)`
	getJobsQuery      = `SELECT ` + jobColumns + ` FROM jobs WHERE (? = '' OR status = ?)
					ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	postgresRowLock = `FOR UPDATE SKIP LOCKED`
)
