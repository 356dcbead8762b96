package scheduler

// LogMsgTickSkipped is logged when a scheduled job could not be queued
const LogMsgTickSkipped = "Scheduled job skipped, worker queue full"
