package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pyae198022/ShopHub/internal/config"
	"github.com/pyae198022/ShopHub/internal/models"
	"github.com/pyae198022/ShopHub/internal/notify"
	"github.com/pyae198022/ShopHub/internal/orders"
	"github.com/pyae198022/ShopHub/internal/store"
	"github.com/spf13/cobra"
)

var setOrderStatusCmd = &cobra.Command{
	Use:   "set-order-status",
	Short: "Move an order to a new status",
	Long: `Update an order's status and optionally its tracking details.

Shipped and delivered timestamps are recorded the first time the order
reaches those statuses. With --notify the customer is emailed afterwards;
a failed email does not undo the update.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		mgr, err := newManager(cfg, db)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		id, _ := flags.GetString("id")
		status, _ := flags.GetString("status")
		tracking, _ := flags.GetString("tracking")
		carrier, _ := flags.GetString("carrier")
		send, _ := flags.GetBool("notify")

		upd := models.OrderUpdate{Status: models.Set(models.OrderStatus(status))}
		if flags.Changed("tracking") {
			upd.TrackingNumber = models.Set(tracking)
		}
		if flags.Changed("carrier") {
			upd.Carrier = models.Set(carrier)
		}
		return setOrderStatus(cmd.Context(), cmd.OutOrStdout(), mgr, id, upd, send)
	},
}

var notifyOrderCmd = &cobra.Command{
	Use:   "notify-order",
	Short: "Email the customer about an order's current status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		mgr, err := newManager(cfg, db)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString("id")
		return reportNotify(cmd.OutOrStdout(), mgr.NotifyStatusChange(cmd.Context(), id, orders.NotifyRequest{}))
	},
}

func init() {
	setOrderStatusCmd.Flags().String("id", "", "Order ID")
	setOrderStatusCmd.Flags().String("status", "", "New status (pending, confirmed, processing, shipped, delivered, cancelled)")
	setOrderStatusCmd.Flags().String("tracking", "", "Tracking number")
	setOrderStatusCmd.Flags().String("carrier", "", "Shipping carrier")
	setOrderStatusCmd.Flags().Bool("notify", false, "Email the customer after updating")
	setOrderStatusCmd.MarkFlagRequired("id")
	setOrderStatusCmd.MarkFlagRequired("status")

	notifyOrderCmd.Flags().String("id", "", "Order ID")
	notifyOrderCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(setOrderStatusCmd)
	rootCmd.AddCommand(notifyOrderCmd)
}

func newManager(cfg *config.Config, db *store.Store) (*orders.Manager, error) {
	templates := notify.NewTemplateCache()
	if err := templates.Load(notify.Templates()); err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	mailer := notify.NewMailer(cfg.MailProvider, cfg.ResendAPIKey, cfg.MailFrom)
	return orders.NewManager(db, db, nil, mailer, templates,
		orders.WithStrictTransitions(cfg.StrictOrderTransitions),
		orders.WithNotifyTimeout(cfg.NotifyTimeout),
		orders.WithStoreName(cfg.StoreName),
	), nil
}

func setOrderStatus(ctx context.Context, out io.Writer, mgr *orders.Manager, id string, upd models.OrderUpdate, send bool) error {
	o, err := mgr.UpdateOrder(ctx, id, upd)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Order #%s is now %s (updated %s).\n", o.ShortID(), o.Status, o.UpdatedAt.Format(time.RFC3339))
	if !send {
		return nil
	}
	return reportNotify(out, mgr.NotifyStatusChange(ctx, id, orders.NotifyRequest{Status: o.Status}))
}

func reportNotify(out io.Writer, res orders.NotifyResult) error {
	if res.Success {
		fmt.Fprintln(out, "Notification sent.")
		return nil
	}
	if res.Retryable {
		return fmt.Errorf("notification failed, try again: %s", res.Error)
	}
	return fmt.Errorf("notification failed: %s", res.Error)
}
