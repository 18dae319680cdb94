package email

import "github.com/Strob0t/invoiceflow/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(lookup notifier.Lookup) (notifier.Notifier, error) {
		return NewNotifier(lookup), nil
	})
}
