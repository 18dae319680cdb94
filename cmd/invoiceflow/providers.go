package main

// Notifier blank imports. Each import activates a self-registering adapter.

import (
	_ "github.com/Strob0t/invoiceflow/internal/adapter/email"
	_ "github.com/Strob0t/invoiceflow/internal/adapter/slack"
)
