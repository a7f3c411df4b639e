package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"slotbook/config"
	"slotbook/models"
	"slotbook/services/notification"
	"slotbook/services/reconcile"
	"slotbook/services/tasks"
)

// InitReminderWorker runs the async reminder worker in background.
func InitReminderWorker(notifSvc notification.NotificationService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, handleReminderTask(notifSvc))

	go func() {
		log.Println("[ReminderWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[ReminderWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[ReminderWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleReminderTask(notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ReminderHandler] invalid payload: %v", err)
			return err
		}

		var err error
		switch p.Target {
		case "client":
			err = notifSvc.NotifyClient(ctx, p.TargetID, "reminder", p.Title, p.Body)
		case "vendor":
			err = notifSvc.NotifyVendor(ctx, p.TargetID, "reminder", p.Title, p.Body)
		default:
			log.Printf("[ReminderHandler] unknown target type: %s", p.Target)
			return nil
		}

		if err != nil {
			log.Printf("[ReminderHandler] failed to deliver reminder for booking %s: %v", p.BookingID, err)
		}
		return err
	}
}

// StartReconcileScheduler runs the reconciliation sweeps on the
// configured interval. Returns the scheduler so the caller can stop it
// on shutdown.
func StartReconcileScheduler(r *reconcile.Reconciler) *cron.Cron {
	c := cron.New()
	spec := fmt.Sprintf("@every %dm", config.AppConfig.ReconcileIntervalMinutes)

	mustAdd(c, spec, "missed sweep", r.SweepMissed)
	mustAdd(c, spec, "reminder ladder", r.RunReminderLadder)
	mustAdd(c, spec, "vendor prompts", r.SweepVendorPrompts)

	c.Start()
	log.Printf("[Reconciler] sweeps scheduled %s", spec)
	return c
}

func mustAdd(c *cron.Cron, spec, name string, run func(ctx context.Context) error) {
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := run(ctx); err != nil {
			log.Printf("[Reconciler] %s failed: %v", name, err)
		}
	})
	if err != nil {
		log.Fatalf("[Reconciler] failed to schedule %s: %v", name, err)
	}
}
