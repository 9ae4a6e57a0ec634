// Package queue provides the single-producer/single-consumer queue
// used to hand actions and updates between the coordinator and each
// account worker: a growable ring buffer behind one short-held mutex,
// enqueue never blocking the producer.
package queue
