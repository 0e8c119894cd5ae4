// Package influxdb records start-up sequence telemetry in InfluxDB.
//
// Two measurements are written:
//
//	sequence_progress  tags: target, procedure, step, status   field: value
//	sequence_run       tags: target, procedure, outcome        fields: count, sim_seconds
//
// Writes go through the batching write API and never block the caller.
// Batch size and flush interval come from config.yaml; write failures are
// delivered to the SetOnError callback.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSequenceProgress("F-16C_50", "f16c50", "wait_jfs", "running", 0.42)
package influxdb
