package memory

import "mkwanja/internal/core"

func moneyOf(cents int64) core.Money { return core.Money{Cents: cents} }
