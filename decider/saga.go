package decider

// Saga maps facts back to intents: React returns the follow-up commands an
// event triggers on other aggregates. A saga holds no state and performs no
// I/O; executing the returned commands is the caller's concern.
type Saga[E any, C any] struct {
	React func(event E) []C
}

// CombineSagas merges sagas defined over the same event/command union into
// one saga whose reactions are the concatenation of all component reactions,
// in the order the sagas are given.
func CombineSagas[E any, C any](sagas ...Saga[E, C]) Saga[E, C] {
	return Saga[E, C]{
		React: func(event E) []C {
			var commands []C

			for _, saga := range sagas {
				if saga.React == nil {
					continue
				}

				commands = append(commands, saga.React(event)...)
			}

			return commands
		},
	}
}
