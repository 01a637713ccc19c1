package report

import (
	"go.uber.org/zap"
)

// Log renders events as structured log entries. Statement failures and worker
// failures are logged at warn and error level respectively.
func Log(logger *zap.Logger) Reporter {
	return Func(func(ev Event) {
		switch e := ev.(type) {
		case SchemaStarted:
			logger.Info("exporting schema", zap.String("schema", e.Schema))
		case TableStarted:
			logger.Info("exporting table", zap.String("schema", e.Schema), zap.String("table", e.Table))
		case IndexExported:
			logger.Info("exported index",
				zap.String("schema", e.Schema),
				zap.String("table", e.Table),
				zap.String("index", e.Index),
				zap.String("path", e.Path))
		case ExportFinished:
			logger.Info("export finished",
				zap.String("run_id", e.RunID),
				zap.Int("schemas", e.Schemas),
				zap.Int("tables", e.Tables),
				zap.Int("indexes", e.Indexes),
				zap.Duration("elapsed", e.Elapsed))
		case CollectFinished:
			logger.Info("collected statements", zap.String("root", e.Root), zap.Int("files", e.Files))
		case ReplayStarted:
			logger.Info("replay started", zap.String("run_id", e.RunID), zap.Int("items", e.Items), zap.Int("workers", e.Workers))
		case StatementStarted:
			logger.Debug("executing statement", zap.Int("worker", e.Worker), zap.String("label", e.Label))
		case StatementFinished:
			if e.Err == "" {
				logger.Info("statement succeeded", zap.Int("worker", e.Worker), zap.String("label", e.Label), zap.Duration("elapsed", e.Elapsed))
			} else {
				logger.Warn("statement failed", zap.Int("worker", e.Worker), zap.String("label", e.Label), zap.Duration("elapsed", e.Elapsed), zap.String("error", e.Err))
			}
		case WorkerFailed:
			logger.Error("worker stopped", zap.Int("worker", e.Worker), zap.String("error", e.Err))
		case ReplayFinished:
			logger.Info("replay finished",
				zap.String("run_id", e.RunID),
				zap.Int("succeeded", e.Succeeded),
				zap.Int("failed", e.Failed),
				zap.Int("skipped", e.Skipped),
				zap.Int("worker_failures", e.WorkerFailures),
				zap.Duration("elapsed", e.Elapsed))
		}
	})
}
