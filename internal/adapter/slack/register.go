package slack

import "github.com/Strob0t/invoiceflow/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(lookup notifier.Lookup) (notifier.Notifier, error) {
		return newNotifier(func() string { return lookup(KeyWebhookURL) }), nil
	})
}
