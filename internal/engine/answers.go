package engine

// AnswerStore хранит накопленные ответы анкеты по ключам шагов.
// Набор ключей фиксируется сценарием при создании и не меняется:
// изначально каждый ключ отображается в пустую строку.
type AnswerStore struct {
	keys   []string
	values map[string]string
}

// newAnswerStore создает хранилище ответов для всех нефинальных шагов сценария.
func newAnswerStore(script []Step) *AnswerStore {
	a := &AnswerStore{
		keys:   make([]string, 0, len(script)),
		values: make(map[string]string, len(script)),
	}
	for _, step := range script {
		if step.Kind == StepFinal {
			continue
		}
		a.keys = append(a.keys, step.Key)
		a.values[step.Key] = ""
	}
	return a
}

// Get возвращает текущий ответ по ключу шага.
func (a *AnswerStore) Get(key string) string {
	return a.values[key]
}

// Set записывает ответ по ключу шага. Ключи вне сценария игнорируются,
// чтобы набор ключей оставался неизменным.
func (a *AnswerStore) Set(key, value string) {
	if _, ok := a.values[key]; !ok {
		return
	}
	a.values[key] = value
}

// Snapshot возвращает копию всех ответов, пригодную для передачи наружу.
func (a *AnswerStore) Snapshot() map[string]string {
	result := make(map[string]string, len(a.values))
	for k, v := range a.values {
		result[k] = v
	}
	return result
}

// Keys возвращает копию списка ключей в порядке сценария.
func (a *AnswerStore) Keys() []string {
	result := make([]string, len(a.keys))
	copy(result, a.keys)
	return result
}
